package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// ProofOfWork is the mined puzzle solution attached to a header.
type ProofOfWork struct {
	Timestamp uint64
	Target    uint32 // compact target, same encoding family as Bitcoin's nBits
	Nonce     uint64
}

// Header is the chain-linking, PoW-carrying part of a block.
type Header struct {
	ParentHash  [32]byte
	Number      uint64
	BlockRoot   [32]byte
	ProofOfWork ProofOfWork
}

// Hash returns the header's identity hash, used as ParentHash by its
// child. The KV key of header(n) is built from the number, not the hash.
func (h Header) Hash() [32]byte {
	var buf bytes.Buffer
	buf.Write(h.ParentHash[:])
	var numBuf [8]byte
	binary.BigEndian.PutUint64(numBuf[:], h.Number)
	buf.Write(numBuf[:])
	buf.Write(h.BlockRoot[:])
	binary.BigEndian.PutUint64(numBuf[:], h.ProofOfWork.Timestamp)
	buf.Write(numBuf[:])
	var targetBuf [4]byte
	binary.BigEndian.PutUint32(targetBuf[:], h.ProofOfWork.Target)
	buf.Write(targetBuf[:])
	binary.BigEndian.PutUint64(numBuf[:], h.ProofOfWork.Nonce)
	buf.Write(numBuf[:])
	return sha256.Sum256(buf.Bytes())
}

// ExpandCompactTarget turns the compact (Bitcoin-style nBits) encoding
// into a full 256-bit target for comparison/power calculations.
func ExpandCompactTarget(compact uint32) *big.Int {
	exponent := compact >> 24
	mantissa := compact & 0x007fffff
	result := new(big.Int).SetUint64(uint64(mantissa))
	if exponent <= 3 {
		result.Rsh(result, uint(8*(3-exponent)))
		return result
	}
	result.Lsh(result, uint(8*(exponent-3)))
	return result
}

// CompactFromBig re-encodes a full target back into compact form.
func CompactFromBig(target *big.Int) uint32 {
	if target.Sign() <= 0 {
		return 0
	}
	bz := target.Bytes()
	exponent := uint32(len(bz))
	var mantissa uint32
	switch {
	case exponent <= 3:
		mantissa = uint32(new(big.Int).Lsh(target, uint(8*(3-exponent))).Uint64())
	default:
		mantissa = uint32(new(big.Int).Rsh(target, uint(8*(exponent-3))).Uint64())
	}
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return exponent<<24 | mantissa
}

func expandCompactTarget(compact uint32) *big.Int { return ExpandCompactTarget(compact) }

var maxPower = new(big.Int).Lsh(big.NewInt(1), 256)

// Power returns an integer proportional to 2^256 / target, the
// contribution this header makes to cumulative chain power.
func (h Header) Power() *big.Int {
	target := expandCompactTarget(h.ProofOfWork.Target)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	power := new(big.Int).Set(maxPower)
	return power.Div(power, target)
}

// MeetsTarget reports whether hashing the header together with powKey
// produces a value numerically below the header's target. The actual
// mixing of powKey into the hash input is left to the miner/puzzle
// layer (out of scope, §1); here we only need the numeric comparison
// the fork-choice and validation code relies on, so we hash the header
// together with the key directly.
func (h Header) MeetsTarget(powKey []byte) bool {
	var buf bytes.Buffer
	hh := h.Hash()
	buf.Write(hh[:])
	buf.Write(powKey)
	digest := sha256.Sum256(buf.Bytes())
	val := new(big.Int).SetBytes(digest[:])
	return val.Cmp(expandCompactTarget(h.ProofOfWork.Target)) < 0
}
