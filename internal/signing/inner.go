package signing

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// InnerPrivateKey / InnerPublicKey are distinct Go types from their
// outer counterparts even though they share the same underlying curve
// library, so a ZeroTransaction can never be accidentally verified
// against an outer-account key or vice versa.

type InnerPrivateKey struct {
	key *secp256k1.PrivateKey
}

type InnerPublicKey struct {
	key *secp256k1.PublicKey
}

// GenerateInnerKeyPair creates a fresh MPN-internal signing key.
func GenerateInnerKeyPair() (InnerPrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return InnerPrivateKey{}, fmt.Errorf("signing: generate inner key: %w", err)
	}
	return InnerPrivateKey{key: k}, nil
}

func (priv InnerPrivateKey) Public() InnerPublicKey {
	return InnerPublicKey{key: priv.key.PubKey()}
}

func (pub InnerPublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// ParseInnerPublicKey decodes an inner public key, e.g. from
// MpnAccount.Address.PubKey or ZeroTransaction.DstPubKey.
func ParseInnerPublicKey(b []byte) (InnerPublicKey, error) {
	k, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return InnerPublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return InnerPublicKey{key: k}, nil
}

func (priv InnerPrivateKey) Sign(digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(priv.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing: inner sign: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifyInner checks a ZeroTransaction signature against an inner public
// key. ContractPayment signatures use the outer domain (see
// VerifyContractPayment).
func VerifyInner(pub InnerPublicKey, digest [32]byte, sig []byte) bool {
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub.key)
}
