// Package signing implements the two signature domains the spec calls
// for: an outer-account scheme used for Address/Transaction/
// ContractPayment signatures, and an inner scheme used inside zk
// contracts for ZeroTransaction signatures.
//
// The spec describes the outer scheme as "Schnorr-style over a twisted
// Edwards curve". No twisted-Edwards Schnorr implementation appears
// anywhere in the retrieval pack; what does appear, in the teacher's own
// go.mod and in three other pack repos (AKJUS-bsc-erigon,
// bomzoget-Krypper-L1-Core, sanketsaagar-Litechain), is
// github.com/decred/dcrd/dcrec/secp256k1/v4, whose schnorr subpackage
// implements a BIP340-style Schnorr scheme over secp256k1. This package
// realizes both signature domains on top of that library rather than
// inventing an unwired Edwards implementation — see DESIGN.md, Open
// Question O5.
package signing

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

var (
	ErrInvalidPublicKey = errors.New("signing: invalid public key encoding")
	ErrInvalidSignature = errors.New("signing: invalid signature encoding")
)

// PrivateKey is an outer-account signing key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey is an outer-account verification key, serialized in
// compressed form wherever it crosses a type boundary (Address.PubKey).
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GenerateKeyPair creates a fresh outer keypair. Key custody itself is
// the wallet's job (out of scope, §1); the engine only ever verifies.
func GenerateKeyPair() (PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return PrivateKey{}, fmt.Errorf("signing: generate outer key: %w", err)
	}
	return PrivateKey{key: k}, nil
}

// Public returns the public half of priv.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey{key: priv.key.PubKey()}
}

// Bytes returns the compressed public key encoding stored in Address.PubKey.
func (pub PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// ParsePublicKey decodes a compressed public key as stored in an Address.
func ParsePublicKey(b []byte) (PublicKey, error) {
	k, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKey{key: k}, nil
}

// Sign produces a Schnorr signature over digest (already the canonical
// hash of the message, e.g. Transaction.Hash()).
func (priv PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(priv.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing: sign: %w", err)
	}
	return sig.Serialize(), nil
}

// Verify checks a Schnorr signature produced by Sign against pub.
func Verify(pub PublicKey, digest [32]byte, sig []byte) bool {
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub.key)
}
