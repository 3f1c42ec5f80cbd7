package signing

import "github.com/empower1/mpnchain/internal/types"

// VerifyTransaction checks tx.Sig against tx.Src's outer public key. A
// Treasury-sourced transaction (the reward tx) must carry the Unsigned
// sentinel and is accepted without cryptographic verification; any
// other transaction with the Unsigned sentinel is rejected.
func VerifyTransaction(tx types.Transaction) bool {
	if tx.Src.IsTreasury() {
		return tx.Sig.Kind == types.SignatureUnsigned
	}
	if tx.Sig.Kind != types.SignaturePresent {
		return false
	}
	pub, err := ParsePublicKey(tx.Src.PubKey)
	if err != nil {
		return false
	}
	return Verify(pub, tx.Hash(), tx.Sig.Bytes)
}

// paymentSigningDigest mirrors Transaction.canonicalBytes for the
// ContractPayment type: a digest over every field except Sig.
func paymentSigningDigest(p types.ContractPayment) [32]byte {
	cp := p
	cp.Sig = types.Signature{}
	return hashContractPayment(cp)
}

// VerifyContractPayment checks p.Sig against p.Address's outer public key.
func VerifyContractPayment(p types.ContractPayment) bool {
	if p.Sig.Kind != types.SignaturePresent {
		return false
	}
	pub, err := ParsePublicKey(p.Address)
	if err != nil {
		return false
	}
	return Verify(pub, paymentSigningDigest(p), p.Sig.Bytes)
}

// VerifyZeroTransaction checks tx.Sig against the MPN account's inner
// public key srcPub (the pre-state src.Address).
func VerifyZeroTransaction(tx types.ZeroTransaction, srcPub types.InnerAddress) bool {
	pub, err := ParseInnerPublicKey(srcPub.PubKey)
	if err != nil {
		return false
	}
	cp := tx
	cp.Sig = nil
	return VerifyInner(pub, hashZeroTransaction(cp), tx.Sig)
}
