// Package zkstate implements the per-contract sparse Merkleised
// key-value tree and bounded delta history described in spec §2.2/§6:
// get/set/root/height/rollback/reset plus compressed-root derivation.
//
// The hash function itself is treated as an opaque primitive (§1: "the
// arithmetic of the zk proof system and the Poseidon-like hasher...
// treated as opaque primitives with a documented interface"). The
// default Hasher below is built on github.com/consensys/gnark-crypto's
// bn254 scalar field (ecc/bn254/fr), grounded on its presence in the
// retrieval pack (AKJUS-bsc-erigon, sanketsaagar-Litechain): it reduces
// both inputs into the field and combines them, which is the same
// "absorb two field elements" shape a real Poseidon instance has,
// without claiming to implement Poseidon's round function.
package zkstate

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Hasher is the opaque two-to-one compression function the Merkle tree
// is built on.
type Hasher interface {
	Hash(left, right [32]byte) [32]byte
}

// FrHasher is the default Hasher, built on bn254's scalar field.
type FrHasher struct{}

func (FrHasher) Hash(left, right [32]byte) [32]byte {
	var l, r, out fr.Element
	l.SetBytes(left[:])
	r.SetBytes(right[:])
	out.Mul(&l, &r)
	out.Add(&out, &l)
	out.Add(&out, &r)
	b := out.Bytes()
	return b
}

// emptyHashes[i] is the root of an all-empty subtree of height i
// (emptyHashes[0] is the empty-leaf hash).
func emptyHashes(h Hasher, depth int) [][32]byte {
	out := make([][32]byte, depth+1)
	out[0] = [32]byte{}
	for i := 1; i <= depth; i++ {
		out[i] = h.Hash(out[i-1], out[i-1])
	}
	return out
}
