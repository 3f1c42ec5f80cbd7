package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
)

// TransactionDataKind discriminates the TransactionData union.
type TransactionDataKind uint8

const (
	TxRegularSend TransactionDataKind = iota
	TxCreateContract
	TxUpdateContract
)

// RegularSend moves amount from the transaction's src to dst.
type RegularSend struct {
	Dst    Address
	Amount Money
}

// CreateContract publishes a new contract and its genesis state.
type CreateContract struct {
	Contract Contract
}

// UpdateContract submits a batch of updates against an existing
// contract, identified by ContractId.
type UpdateContract struct {
	ContractId ContractId
	Updates    []ContractUpdate
}

// TransactionData is the tagged union of what a transaction can do.
// Exactly one of the three payload fields is meaningful, selected by
// Kind; the others are left at their zero value. This mirrors the
// teacher's TransactionType + per-variant-field style
// (internal/core/transaction.go) rather than an interface, keeping the
// type trivially gob-encodable.
type TransactionData struct {
	Kind           TransactionDataKind
	RegularSend    RegularSend
	CreateContract CreateContract
	UpdateContract UpdateContract
}

// SignatureKind distinguishes a real signature from the sentinel used
// on the unsigned miner-reward transaction.
type SignatureKind uint8

const (
	SignaturePresent SignatureKind = iota
	SignatureUnsigned
)

// Signature wraps the raw signature bytes produced by internal/signing,
// or the Unsigned sentinel for the reward transaction.
type Signature struct {
	Kind  SignatureKind
	Bytes []byte
}

// Unsigned is the sentinel signature required on the miner reward tx.
func Unsigned() Signature { return Signature{Kind: SignatureUnsigned} }

// Transaction is the outer-chain transaction envelope.
type Transaction struct {
	Src   Address
	Nonce uint32
	Fee   Money
	Sig   Signature
	Data  TransactionData
}

// signingPayload is the canonical, deterministically-encoded view of a
// transaction used both to compute its id/hash and as the message a
// signature commits to. It deliberately excludes Sig.
type signingPayload struct {
	Src   []byte
	Nonce uint32
	Fee   uint64
	Kind  uint8
	Data  []byte
}

func (t Transaction) canonicalBytes() []byte {
	var dataBuf bytes.Buffer
	enc := gob.NewEncoder(&dataBuf)
	switch t.Data.Kind {
	case TxRegularSend:
		_ = enc.Encode(t.Data.RegularSend)
	case TxCreateContract:
		_ = enc.Encode(t.Data.CreateContract)
	case TxUpdateContract:
		_ = enc.Encode(t.Data.UpdateContract)
	}
	payload := signingPayload{
		Src:   t.Src.Bytes(),
		Nonce: t.Nonce,
		Fee:   uint64(t.Fee),
		Kind:  uint8(t.Data.Kind),
		Data:  dataBuf.Bytes(),
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(payload)
	return buf.Bytes()
}

// Hash returns the transaction's identity/signing digest.
func (t Transaction) Hash() [32]byte {
	return sha256.Sum256(t.canonicalBytes())
}

// NewContractId derives the deterministic contract id for a CreateContract
// transaction: the hash of its canonical bytes together with a
// domain-separation tag, so a resubmitted-with-different-nonce tx never
// collides with a different contract's id.
func (t Transaction) NewContractId() ContractId {
	h := t.Hash()
	var tag [33]byte
	copy(tag[:32], h[:])
	tag[32] = 'C'
	return ContractId(sha256.Sum256(tag[:]))
}

// StateChange is the effect a CreateContract or UpdateContract
// transaction had on a single contract's compressed state, as recorded
// in contract_updates() for rollback purposes.
type StateChange struct {
	PrevHeight uint64
	PrevState  ZkCompressedState
	State      ZkCompressedState
}
