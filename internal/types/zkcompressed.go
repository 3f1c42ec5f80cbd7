package types

// ZkCompressedState summarises a contract's full key-value Merkle tree:
// a commitment hash plus a size figure approximating storage cost.
type ZkCompressedState struct {
	StateHash [32]byte
	Size      uint64
}

// Equal reports whether two compressed states denote the same tree.
func (z ZkCompressedState) Equal(o ZkCompressedState) bool {
	return z.StateHash == o.StateHash && z.Size == o.Size
}

// StateModel describes the shape of a contract's key-value tree: the
// arity (branching factor, e.g. 4 for a log4 tree) and the key length in
// bits. It is opaque beyond what the zk state manager needs to validate
// structurally and to derive an "empty" compressed state.
type StateModel struct {
	KeyLengthBits uint32
	Arity         uint32
}

// Valid performs the structural check the spec assigns to contract
// creation: a non-zero arity that is a small power of two, and a
// non-zero key length.
func (m StateModel) Valid() bool {
	if m.KeyLengthBits == 0 || m.KeyLengthBits > 256 {
		return false
	}
	switch m.Arity {
	case 2, 4, 8, 16:
		return true
	default:
		return false
	}
}
