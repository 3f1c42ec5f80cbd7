package chain

import (
	"encoding/hex"

	"github.com/empower1/mpnchain/internal/merkle"
	"github.com/empower1/mpnchain/internal/types"
)

func merkleRoot(body []types.Transaction) [32]byte {
	return merkle.New(body).Root()
}

func hexKey(b []byte) string { return hex.EncodeToString(b) }

func zeroTxKey(tx types.ZeroTransaction) string {
	h := tx.Hash()
	return hexKey(h[:])
}

// txWireSize is a tx's size in bytes for the fee-density and block-size
// budget math in SelectTransactions (§4.10), taken from its gob
// encoding since that's the same codec the engine persists blocks with.
func txWireSize(tx types.Transaction) int {
	return len(gobEncode(tx))
}
