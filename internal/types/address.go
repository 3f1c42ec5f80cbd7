package types

import "encoding/hex"

// AddressKind discriminates the two members of the Address union.
type AddressKind uint8

const (
	// AddressTreasury is the distinguished address seeded with the total
	// supply at genesis.
	AddressTreasury AddressKind = iota
	// AddressPublicKey is a regular account addressed by its outer
	// (Schnorr) public key.
	AddressPublicKey
)

// Address is the tagged union {Treasury, PublicKey(pk)}. PubKey is the
// compressed serialization of the outer signing key and is only
// meaningful when Kind == AddressPublicKey.
type Address struct {
	Kind   AddressKind
	PubKey []byte
}

// Treasury returns the distinguished treasury address.
func Treasury() Address {
	return Address{Kind: AddressTreasury}
}

// NewPublicKeyAddress wraps a serialized public key as an Address.
func NewPublicKeyAddress(pubKey []byte) Address {
	cp := make([]byte, len(pubKey))
	copy(cp, pubKey)
	return Address{Kind: AddressPublicKey, PubKey: cp}
}

// IsTreasury reports whether this address is the treasury.
func (a Address) IsTreasury() bool {
	return a.Kind == AddressTreasury
}

// Equal reports whether two addresses refer to the same account.
func (a Address) Equal(b Address) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == AddressTreasury {
		return true
	}
	if len(a.PubKey) != len(b.PubKey) {
		return false
	}
	for i := range a.PubKey {
		if a.PubKey[i] != b.PubKey[i] {
			return false
		}
	}
	return true
}

// Bytes returns the canonical byte encoding used as a KV key suffix:
// a one-byte kind tag followed by the public key, if any.
func (a Address) Bytes() []byte {
	if a.Kind == AddressTreasury {
		return []byte{byte(AddressTreasury)}
	}
	out := make([]byte, 0, 1+len(a.PubKey))
	out = append(out, byte(AddressPublicKey))
	out = append(out, a.PubKey...)
	return out
}

// String renders a short human-readable form, used only in logs.
func (a Address) String() string {
	if a.Kind == AddressTreasury {
		return "treasury"
	}
	return hex.EncodeToString(a.PubKey)
}
