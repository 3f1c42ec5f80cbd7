package kvstore

import (
	"encoding/binary"
)

// Key prefixes for the flat namespace described in spec §4.2. The zk
// state manager reserves its own prefix (ZkPrefix) for Merkle trees and
// delta history and never touches any other prefix.
const (
	prefixAccount           = 'A'
	prefixContract          = 'C'
	prefixContractAccount   = 'c'
	prefixCompressedStateAt = 'S'
	prefixHeight            = 'H'
	prefixHeader            = 'h'
	prefixBlock             = 'B'
	prefixMerkle            = 'M'
	prefixPower             = 'P'
	prefixRollback          = 'R'
	prefixOutdated          = 'O'
	prefixContractUpdates   = 'U'
	prefixZk                = 'Z'
)

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func AccountKey(addr []byte) []byte {
	return append([]byte{prefixAccount}, addr...)
}

func ContractKey(cid []byte) []byte {
	return append([]byte{prefixContract}, cid...)
}

func ContractAccountKey(cid []byte) []byte {
	return append([]byte{prefixContractAccount}, cid...)
}

func CompressedStateAtKey(cid []byte, height uint64) []byte {
	k := append([]byte{prefixCompressedStateAt}, cid...)
	return append(k, u64(height)...)
}

func HeightKey() []byte { return []byte{prefixHeight} }

func HeaderKey(number uint64) []byte {
	return append([]byte{prefixHeader}, u64(number)...)
}

func BlockKey(number uint64) []byte {
	return append([]byte{prefixBlock}, u64(number)...)
}

func MerkleKey(number uint64) []byte {
	return append([]byte{prefixMerkle}, u64(number)...)
}

func PowerKey(number uint64) []byte {
	return append([]byte{prefixPower}, u64(number)...)
}

func RollbackKey(number uint64) []byte {
	return append([]byte{prefixRollback}, u64(number)...)
}

func OutdatedKey() []byte { return []byte{prefixOutdated} }

func ContractUpdatesKey(number uint64) []byte {
	return append([]byte{prefixContractUpdates}, u64(number)...)
}

// ZkPrefix is exported so internal/zkstate can build its own
// sub-namespace beneath it without the two packages needing to agree on
// anything beyond this single byte.
const ZkPrefix = prefixZk
