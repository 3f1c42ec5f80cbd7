package zkstate

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/empower1/mpnchain/internal/types"
)

type mpnAccountWire struct {
	PubKey  []byte
	Balance uint64
	Nonce   uint64
}

// EncodeMpnAccount is the exported form of encodeMpnAccount, for
// callers (the chain engine) that need to build a raw leaf payload
// themselves before calling Manager.UpdateContract directly.
func EncodeMpnAccount(acc types.MpnAccount) []byte { return encodeMpnAccount(acc) }

func encodeMpnAccount(acc types.MpnAccount) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mpnAccountWire{
		PubKey:  acc.Address.PubKey,
		Balance: uint64(acc.Balance),
		Nonce:   acc.Nonce,
	})
	return buf.Bytes()
}

func decodeMpnAccount(raw []byte) (types.MpnAccount, error) {
	var w mpnAccountWire
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&w); err != nil {
		return types.MpnAccount{}, fmt.Errorf("zkstate: decode mpn account: %w", err)
	}
	return types.MpnAccount{
		Address: types.InnerAddress{PubKey: w.PubKey},
		Balance: types.Money(w.Balance),
		Nonce:   w.Nonce,
	}, nil
}
