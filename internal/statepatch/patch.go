// Package statepatch defines the wire shapes used to synchronise a
// contract's zk auxiliary state between peers (§4.12): a per-contract
// patch that is either a bounded Delta or a Full state dump, and the
// ZkBlockchainPatch bundle a drafted block carries alongside it.
package statepatch

import "github.com/empower1/mpnchain/internal/types"

// Kind discriminates the ZkStatePatch union.
type Kind uint8

const (
	KindDelta Kind = iota
	KindFull
)

// LeafChange is one leaf's before/after hash, the unit a Delta is made of.
type LeafChange struct {
	Index uint64
	Old   [32]byte
	New   [32]byte
}

// Patch is ZkStatePatch: either a Delta spanning some number of
// heights, or a Full state dump (every populated leaf index -> raw
// payload).
type Patch struct {
	Kind   Kind
	Delta  []LeafChange      // meaningful when Kind == KindDelta
	Full   map[uint64][]byte // meaningful when Kind == KindFull
	Height uint64            // height the patch brings the contract to
}

// BlockchainPatch is ZkBlockchainPatch: one Patch per contract touched
// by a drafted block (§4.11), built by chain.Engine.GenerateStatePatch
// from this node's local zk state; transactions carry no state delta of
// their own.
// CorrelationId ties a patch to the log lines the engine emits while
// building and applying it, so a multi-step sync exchange (draft ->
// gossip -> UpdateStates) can be traced through a single node's logs.
type BlockchainPatch struct {
	CorrelationId string
	Patches       map[types.ContractId]Patch
}
