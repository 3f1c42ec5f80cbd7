package signing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empower1/mpnchain/internal/types"
)

func TestOuterSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	digest := [32]byte{1, 2, 3}
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	require.True(t, Verify(priv.Public(), digest, sig))
}

func TestOuterVerifyRejectsWrongKey(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	digest := [32]byte{4, 5, 6}
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	require.False(t, Verify(other.Public(), digest, sig))
}

func TestOuterVerifyRejectsTamperedDigest(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	digest := [32]byte{7, 7, 7}
	sig, err := priv.Sign(digest)
	require.NoError(t, err)

	tampered := digest
	tampered[0] ^= 0xFF
	require.False(t, Verify(priv.Public(), tampered, sig))
}

func TestPublicKeyBytesRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	pub := priv.Public()
	parsed, err := ParsePublicKey(pub.Bytes())
	require.NoError(t, err)
	require.Equal(t, pub.Bytes(), parsed.Bytes())
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey([]byte("not a key"))
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestInnerSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateInnerKeyPair()
	require.NoError(t, err)

	digest := [32]byte{9, 9, 9}
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	require.True(t, VerifyInner(priv.Public(), digest, sig))
}

func TestInnerVerifyRejectsWrongKey(t *testing.T) {
	priv, err := GenerateInnerKeyPair()
	require.NoError(t, err)
	other, err := GenerateInnerKeyPair()
	require.NoError(t, err)

	digest := [32]byte{1, 1, 1}
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	require.False(t, VerifyInner(other.Public(), digest, sig))
}

func TestVerifyTransactionRegularSend(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)
	src := types.NewPublicKeyAddress(priv.Public().Bytes())

	tx := types.Transaction{
		Src:   src,
		Nonce: 1,
		Fee:   1,
		Data: types.TransactionData{
			Kind:        types.TxRegularSend,
			RegularSend: types.RegularSend{Dst: types.NewPublicKeyAddress([]byte("dst")), Amount: 100},
		},
	}
	sig, err := priv.Sign(tx.Hash())
	require.NoError(t, err)
	tx.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}

	require.True(t, VerifyTransaction(tx))
}

func TestVerifyTransactionRejectsTamperedNonce(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)
	src := types.NewPublicKeyAddress(priv.Public().Bytes())

	tx := types.Transaction{
		Src:   src,
		Nonce: 1,
		Data: types.TransactionData{
			Kind:        types.TxRegularSend,
			RegularSend: types.RegularSend{Dst: types.NewPublicKeyAddress([]byte("dst")), Amount: 100},
		},
	}
	sig, err := priv.Sign(tx.Hash())
	require.NoError(t, err)
	tx.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}

	tx.Nonce = 2
	require.False(t, VerifyTransaction(tx))
}

func TestVerifyTransactionTreasuryRequiresUnsignedSentinel(t *testing.T) {
	tx := types.Transaction{
		Src: types.Treasury(),
		Data: types.TransactionData{
			Kind:        types.TxRegularSend,
			RegularSend: types.RegularSend{Dst: types.NewPublicKeyAddress([]byte("dst")), Amount: 1},
		},
		Sig: types.Unsigned(),
	}
	require.True(t, VerifyTransaction(tx))

	signed := tx
	signed.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: []byte("bogus")}
	require.False(t, VerifyTransaction(signed))
}

func TestVerifyTransactionRejectsUnsignedFromNonTreasury(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)
	tx := types.Transaction{
		Src: types.NewPublicKeyAddress(priv.Public().Bytes()),
		Data: types.TransactionData{
			Kind:        types.TxRegularSend,
			RegularSend: types.RegularSend{Dst: types.NewPublicKeyAddress([]byte("dst")), Amount: 1},
		},
		Sig: types.Unsigned(),
	}
	require.False(t, VerifyTransaction(tx))
}

func TestVerifyContractPaymentRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	p := types.ContractPayment{
		ContractId: types.ContractId{1},
		Address:    priv.Public().Bytes(),
		Nonce:      3,
		Amount:     10,
		Direction:  types.Deposit,
	}
	digest := paymentSigningDigest(p)
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	p.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}

	require.True(t, VerifyContractPayment(p))

	tampered := p
	tampered.Amount = 11
	require.False(t, VerifyContractPayment(tampered))
}

func TestVerifyZeroTransactionRoundTrip(t *testing.T) {
	priv, err := GenerateInnerKeyPair()
	require.NoError(t, err)
	srcAddr := types.InnerAddress{PubKey: priv.Public().Bytes()}

	tx := types.ZeroTransaction{
		SrcIndex: 1,
		DstIndex: 2,
		Nonce:    1,
		Amount:   5,
	}
	digest := hashZeroTransaction(tx)
	sig, err := priv.Sign(digest)
	require.NoError(t, err)
	tx.Sig = sig

	require.True(t, VerifyZeroTransaction(tx, srcAddr))

	tx.Amount = 6
	require.False(t, VerifyZeroTransaction(tx, srcAddr))
}
