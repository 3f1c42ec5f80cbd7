package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
)

// MpnAccount is an account inside an MPN contract's tree.
type MpnAccount struct {
	Address InnerAddress
	Balance Money
	Nonce   uint64
}

// InnerAddress is the inner (MPN-internal) public key of an MpnAccount,
// distinct from the outer Address used on the base chain.
type InnerAddress struct {
	PubKey []byte
}

// IsZero reports whether this is an unused (never-written) MPN account
// slot.
func (a MpnAccount) IsZero() bool {
	return len(a.Address.PubKey) == 0 && a.Balance == 0 && a.Nonce == 0
}

// ZeroTransaction is an MPN-internal transfer between two indices of the
// MPN contract's account tree.
type ZeroTransaction struct {
	SrcIndex  uint64
	DstIndex  uint64
	DstPubKey InnerAddress
	Nonce     uint64
	Amount    Money
	Fee       Money
	Sig       []byte
}

// Hash returns the transaction's identity digest (mempool key, and the
// canonical signing digest once Sig is cleared by the caller).
func (tx ZeroTransaction) Hash() [32]byte {
	cp := tx
	cp.Sig = nil
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(cp)
	return sha256.Sum256(buf.Bytes())
}
