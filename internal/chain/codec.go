package chain

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/empower1/mpnchain/internal/types"
)

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeU64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func gobEncode(v any) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(v)
	return buf.Bytes()
}

func gobDecode(raw []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(out); err != nil {
		return fmt.Errorf("chain: decode: %w", err)
	}
	return nil
}

func encodeHeader(h types.Header) []byte    { return gobEncode(h) }
func decodeHeader(raw []byte) (types.Header, error) {
	var h types.Header
	err := gobDecode(raw, &h)
	return h, err
}

func encodeBlock(b types.Block) []byte { return gobEncode(b) }
func decodeBlock(raw []byte) (types.Block, error) {
	var b types.Block
	err := gobDecode(raw, &b)
	return b, err
}

func encodeAccount(a types.Account) []byte { return gobEncode(a) }
func decodeAccount(raw []byte) (types.Account, error) {
	var a types.Account
	err := gobDecode(raw, &a)
	return a, err
}

func encodeContract(c types.Contract) []byte { return gobEncode(c) }
func decodeContract(raw []byte) (types.Contract, error) {
	var c types.Contract
	err := gobDecode(raw, &c)
	return c, err
}

func encodeContractAccount(c types.ContractAccount) []byte { return gobEncode(c) }
func decodeContractAccount(raw []byte) (types.ContractAccount, error) {
	var c types.ContractAccount
	err := gobDecode(raw, &c)
	return c, err
}

func encodeCompressedState(s types.ZkCompressedState) []byte { return gobEncode(s) }
func decodeCompressedState(raw []byte) types.ZkCompressedState {
	var s types.ZkCompressedState
	_ = gobDecode(raw, &s)
	return s
}
