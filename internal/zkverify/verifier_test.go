package zkverify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empower1/mpnchain/internal/types"
)

func TestFrVerifierAcceptsBuiltProof(t *testing.T) {
	vk := types.VerifyingKey{CircuitId: 7}
	pre := types.ZkCompressedState{StateHash: [32]byte{1}}
	next := types.ZkCompressedState{StateHash: [32]byte{2}}
	aux := AuxData{Scalar: 42}

	proof := BuildProof(vk, pre, aux, next)
	var v FrVerifier
	require.True(t, v.CheckProof(vk, pre, aux, next, proof))
}

func TestFrVerifierRejectsEmptyProof(t *testing.T) {
	vk := types.VerifyingKey{CircuitId: 1}
	var v FrVerifier
	require.False(t, v.CheckProof(vk, types.ZkCompressedState{}, AuxData{}, types.ZkCompressedState{}, nil))
}

func TestFrVerifierRejectsTamperedAux(t *testing.T) {
	vk := types.VerifyingKey{CircuitId: 3}
	pre := types.ZkCompressedState{StateHash: [32]byte{1}}
	next := types.ZkCompressedState{StateHash: [32]byte{2}}

	proof := BuildProof(vk, pre, AuxData{Scalar: 10}, next)

	var v FrVerifier
	require.False(t, v.CheckProof(vk, pre, AuxData{Scalar: 11}, next, proof))
}

func TestFrVerifierRejectsWrongCircuit(t *testing.T) {
	pre := types.ZkCompressedState{StateHash: [32]byte{1}}
	next := types.ZkCompressedState{StateHash: [32]byte{2}}
	aux := AuxData{Scalar: 5}

	proof := BuildProof(types.VerifyingKey{CircuitId: 1}, pre, aux, next)

	var v FrVerifier
	require.False(t, v.CheckProof(types.VerifyingKey{CircuitId: 2}, pre, aux, next, proof))
}

func TestFrVerifierAcceptsProofWithPaymentSlots(t *testing.T) {
	vk := types.VerifyingKey{CircuitId: 9}
	pre := types.ZkCompressedState{StateHash: [32]byte{3}}
	next := types.ZkCompressedState{StateHash: [32]byte{4}}
	aux := AuxData{Slots: []PaymentSlot{
		{Amount: 100, Direction: types.Deposit},
		{Amount: 50, Direction: types.Withdraw},
	}}

	proof := BuildProof(vk, pre, aux, next)
	var v FrVerifier
	require.True(t, v.CheckProof(vk, pre, aux, next, proof))

	tamperedAux := aux
	tamperedAux.Slots = []PaymentSlot{
		{Amount: 999, Direction: types.Deposit},
		{Amount: 50, Direction: types.Withdraw},
	}
	require.False(t, v.CheckProof(vk, pre, tamperedAux, next, proof))
}
