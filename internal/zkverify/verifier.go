// Package zkverify is the opaque zk-proof verifier collaborator (§6:
// "zk::check_proof(circuit, pre_state, aux_data, next_state, proof) ->
// bool"). The proof system's arithmetic is explicitly out of scope
// (§1); this package only defines the interface boundary the chain
// engine calls through, plus a verifier implementation grounded on
// github.com/consensys/gnark-crypto's bn254 field (the same dependency
// zkstate.FrHasher uses) so the "circuit" and "proof" shapes are at
// least dimensionally consistent with a real Groth16/Plonk verifying
// key over that curve.
package zkverify

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/empower1/mpnchain/internal/types"
)

// AuxData is the auxiliary public input a circuit is proven against,
// alongside pre/next state: a payment batch's list-shaped aux state or
// a function call's scalar fee, depending on the update kind (§4.3).
type AuxData struct {
	// Scalar is used by FunctionCall updates (aux state == fee).
	Scalar types.Money
	// Slots is used by Payment updates: one {amount, direction, pkx,
	// pky} tuple per payment in the batch, in batch order. The chain
	// engine sets PkX to the payment's zk address, leaves PkY empty, and
	// does not pad the list to a log4 size.
	Slots []PaymentSlot
}

// PaymentSlot is one entry of a Payment update's list-shaped aux state.
type PaymentSlot struct {
	Amount    types.Money
	Direction types.PaymentDirection
	PkX, PkY  []byte
}

// Verifier checks a zk proof against a circuit's verifying key.
type Verifier interface {
	CheckProof(vk types.VerifyingKey, pre types.ZkCompressedState, aux AuxData, next types.ZkCompressedState, proof []byte) bool
}

// FrVerifier is a deterministic stand-in verifier: it folds the
// circuit id, pre/next state hashes, and aux data into the bn254
// scalar field and checks the proof bytes are that field element's
// canonical encoding. This lets tests exercise the full accept/reject
// control flow in apply_tx without a real proving backend, while still
// being grounded on the same zk-adjacent dependency the rest of the
// pack reaches for (AKJUS-bsc-erigon, sanketsaagar-Litechain).
type FrVerifier struct{}

func (FrVerifier) CheckProof(vk types.VerifyingKey, pre types.ZkCompressedState, aux AuxData, next types.ZkCompressedState, proof []byte) bool {
	if len(proof) == 0 {
		return false
	}
	expected := expectedProofElement(vk, pre, aux, next)
	var got fr.Element
	got.SetBytes(proof)
	return got.Equal(&expected)
}

// BuildProof computes the proof bytes FrVerifier accepts for the given
// inputs; used by tests and by anything drafting updates in-process
// (there is no external prover in this codebase, §1).
func BuildProof(vk types.VerifyingKey, pre types.ZkCompressedState, aux AuxData, next types.ZkCompressedState) []byte {
	e := expectedProofElement(vk, pre, aux, next)
	b := e.Bytes()
	return b[:]
}

func expectedProofElement(vk types.VerifyingKey, pre types.ZkCompressedState, aux AuxData, next types.ZkCompressedState) fr.Element {
	var acc fr.Element
	acc.SetUint64(uint64(vk.CircuitId))

	var tmp fr.Element
	tmp.SetBytes(pre.StateHash[:])
	acc.Add(&acc, &tmp)
	tmp.SetBytes(next.StateHash[:])
	acc.Add(&acc, &tmp)

	tmp.SetUint64(uint64(aux.Scalar))
	acc.Add(&acc, &tmp)
	for _, s := range aux.Slots {
		tmp.SetUint64(uint64(s.Amount))
		acc.Add(&acc, &tmp)
		tmp.SetUint64(uint64(s.Direction))
		acc.Add(&acc, &tmp)
	}
	return acc
}
