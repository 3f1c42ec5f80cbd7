package signing

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"

	"github.com/empower1/mpnchain/internal/types"
)

func hashContractPayment(p types.ContractPayment) [32]byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(p)
	return sha256.Sum256(buf.Bytes())
}

func hashZeroTransaction(tx types.ZeroTransaction) [32]byte {
	return tx.Hash()
}
