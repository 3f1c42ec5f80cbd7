package zkstate

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"

	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/types"
)

// TreeDepth bounds the sparse Merkle tree used for every contract's
// account/storage index space; 2^TreeDepth leaves is enough head-room
// for any contract this engine will ever materialise in practice.
const TreeDepth = 32

var (
	ErrContractNotFound = errors.New("zkstate: contract not found")
	ErrNoDelta          = errors.New("zkstate: no delta recorded at that height")
	ErrInsufficientDeltaHistory = errors.New("zkstate: delta history does not cover the requested range")
)

type nodeAddr struct {
	Level uint8
	Index uint64
}

// LeafChange is one leaf's before/after hash, the unit a recorded
// delta (and a statepatch.Patch's Delta) is made of.
type LeafChange struct {
	Index uint64
	Old   [32]byte
	New   [32]byte
}

// contractTree is the full in-memory materialisation of one contract's
// tree, gob-encoded as a single KV blob. Persisting it as one blob
// (rather than one KV key per node) keeps this package's correctness
// independent of any particular KVStore's key-iteration capabilities,
// while still going through ordinary Get/Update so it is automatically
// covered by the engine's mirror/rollback machinery at the KV layer.
type contractTree struct {
	Height uint64
	Nodes  map[nodeAddr][32]byte
	Leaves map[uint64][]byte // raw leaf payloads, keyed by index
}

func newContractTree() *contractTree {
	return &contractTree{Nodes: make(map[nodeAddr][32]byte), Leaves: make(map[uint64][]byte)}
}

// Manager is the ZK State Manager collaborator (§6: ZkStateManager).
// It is constructed fresh over whatever KVStore (real store or an
// engine mirror) is active for the current operation.
type Manager struct {
	store  kvstore.KVStore
	hasher Hasher
	empty  [][32]byte // emptyHashes(hasher, TreeDepth)

	maxDeltaHistory uint64
}

// New constructs a Manager bound to store.
func New(store kvstore.KVStore, hasher Hasher, maxDeltaHistory uint64) *Manager {
	if hasher == nil {
		hasher = FrHasher{}
	}
	return &Manager{
		store:           store,
		hasher:          hasher,
		empty:           emptyHashes(hasher, TreeDepth),
		maxDeltaHistory: maxDeltaHistory,
	}
}

func treeBlobKey(cid types.ContractId) []byte {
	return append([]byte{kvstore.ZkPrefix, 'T'}, cid[:]...)
}

func deltaBlobKey(cid types.ContractId, height uint64) []byte {
	k := append([]byte{kvstore.ZkPrefix, 'D'}, cid[:]...)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(height >> (56 - 8*i))
	}
	return append(k, b[:]...)
}

func (m *Manager) loadTree(cid types.ContractId) (*contractTree, bool, error) {
	raw, ok, err := m.store.Get(treeBlobKey(cid))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var t contractTree
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&t); err != nil {
		return nil, false, fmt.Errorf("zkstate: decode tree blob: %w", err)
	}
	if t.Nodes == nil {
		t.Nodes = make(map[nodeAddr][32]byte)
	}
	if t.Leaves == nil {
		t.Leaves = make(map[uint64][]byte)
	}
	return &t, true, nil
}

func (m *Manager) saveTree(cid types.ContractId, t *contractTree) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return fmt.Errorf("zkstate: encode tree blob: %w", err)
	}
	return m.store.Update([]kvstore.Op{kvstore.Put(treeBlobKey(cid), buf.Bytes())})
}

func (m *Manager) nodeAt(t *contractTree, level uint8, index uint64) [32]byte {
	if h, ok := t.Nodes[nodeAddr{Level: level, Index: index}]; ok {
		return h
	}
	return m.empty[TreeDepth-int(level)]
}

func (m *Manager) leafHash(value []byte) [32]byte {
	if len(value) == 0 {
		return [32]byte{}
	}
	return m.hasher.Hash(sumToHalf(value), sumToHalf(value))
}

// sumToHalf folds an arbitrary-length value down to 32 bytes by XOR-ing
// it in 32-byte chunks, so arbitrary leaf payloads (MpnAccount encodings,
// contract storage slots) can seed the Merkle path.
func sumToHalf(v []byte) [32]byte {
	var out [32]byte
	for i, b := range v {
		out[i%32] ^= b
	}
	return out
}

// setLeaf writes value at index and recomputes every node on the path
// to the root, returning the per-level changes for the delta log.
func (m *Manager) setLeaf(t *contractTree, index uint64, value []byte) []LeafChange {
	var changes []LeafChange
	oldLeaf := m.nodeAt(t, TreeDepth, index)
	newLeaf := m.leafHash(value)
	if value == nil {
		delete(t.Leaves, index)
	} else {
		t.Leaves[index] = value
	}
	t.Nodes[nodeAddr{Level: TreeDepth, Index: index}] = newLeaf
	changes = append(changes, LeafChange{Index: index, Old: oldLeaf, New: newLeaf})

	cur := index
	curHash := newLeaf
	for level := uint8(TreeDepth); level > 0; level-- {
		siblingIdx := cur ^ 1
		sibling := m.nodeAt(t, level, siblingIdx)
		var left, right [32]byte
		if cur%2 == 0 {
			left, right = curHash, sibling
		} else {
			left, right = sibling, curHash
		}
		parentHash := m.hasher.Hash(left, right)
		cur = cur / 2
		curHash = parentHash
		t.Nodes[nodeAddr{Level: level - 1, Index: cur}] = parentHash
	}
	return changes
}

func (m *Manager) root(t *contractTree) [32]byte {
	return m.nodeAt(t, 0, 0)
}

// Root returns the contract's current tree root, or the all-empty root
// if the contract has never been touched.
func (m *Manager) Root(cid types.ContractId) ([32]byte, error) {
	t, ok, err := m.loadTree(cid)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return m.empty[TreeDepth], nil
	}
	return m.root(t), nil
}

// HeightOf returns the number of update_contract calls applied so far.
func (m *Manager) HeightOf(cid types.ContractId) (uint64, error) {
	t, ok, err := m.loadTree(cid)
	if err != nil || !ok {
		return 0, err
	}
	return t.Height, nil
}

// GetData reads a single leaf's raw payload (an MpnAccount encoding, a
// contract storage slot, ...), by index ("locator" in §6).
func (m *Manager) GetData(cid types.ContractId, locator uint64) ([]byte, bool, error) {
	t, ok, err := m.loadTree(cid)
	if err != nil || !ok {
		return nil, false, err
	}
	v, ok := t.Leaves[locator]
	return v, ok, nil
}

// SetData writes a single leaf's raw payload and recomputes its path to
// the root. It leaves the contract's height unchanged and records no
// delta.
func (m *Manager) SetData(cid types.ContractId, locator uint64, value []byte) error {
	t, ok, err := m.loadTree(cid)
	if err != nil {
		return err
	}
	if !ok {
		t = newContractTree()
	}
	m.setLeaf(t, locator, value)
	return m.saveTree(cid, t)
}

// SetMpnAccount writes an MPN account at index and returns the number
// of bytes the encoding occupies (used by callers computing
// ZkCompressedState.Size deltas).
func (m *Manager) SetMpnAccount(cid types.ContractId, index uint64, acc types.MpnAccount) (int, error) {
	enc := encodeMpnAccount(acc)
	if err := m.SetData(cid, index, enc); err != nil {
		return 0, err
	}
	return len(enc), nil
}

// GetMpnAccount reads the MPN account at index, or the zero account if
// never written.
func (m *Manager) GetMpnAccount(cid types.ContractId, index uint64) (types.MpnAccount, error) {
	raw, ok, err := m.GetData(cid, index)
	if err != nil {
		return types.MpnAccount{}, err
	}
	if !ok {
		return types.MpnAccount{}, nil
	}
	return decodeMpnAccount(raw)
}

// GetMpnAccounts pages through every populated MPN account index, in
// ascending index order.
func (m *Manager) GetMpnAccounts(cid types.ContractId, page, pageSize int) ([]types.MpnAccount, error) {
	t, ok, err := m.loadTree(cid)
	if err != nil || !ok {
		return nil, err
	}
	indices := make([]uint64, 0, len(t.Leaves))
	for idx := range t.Leaves {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	start := page * pageSize
	if start >= len(indices) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(indices) {
		end = len(indices)
	}
	out := make([]types.MpnAccount, 0, end-start)
	for _, idx := range indices[start:end] {
		acc, err := decodeMpnAccount(t.Leaves[idx])
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

// UpdateContract applies one update_contract call's worth of leaf
// writes (delta is the set of (index, rawValue) pairs this call
// touches), bumps Height by exactly one, and records the leaf changes
// in the bounded delta log.
func (m *Manager) UpdateContract(cid types.ContractId, delta map[uint64][]byte) error {
	t, ok, err := m.loadTree(cid)
	if err != nil {
		return err
	}
	if !ok {
		t = newContractTree()
	}
	indices := make([]uint64, 0, len(delta))
	for idx := range delta {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var changes []LeafChange
	for _, idx := range indices {
		changes = append(changes, m.setLeaf(t, idx, delta[idx])...)
	}
	t.Height++
	if err := m.saveTree(cid, t); err != nil {
		return err
	}
	return m.recordDelta(cid, t.Height, changes)
}

func (m *Manager) recordDelta(cid types.ContractId, height uint64, changes []LeafChange) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(changes); err != nil {
		return fmt.Errorf("zkstate: encode delta: %w", err)
	}
	if err := m.store.Update([]kvstore.Op{kvstore.Put(deltaBlobKey(cid, height), buf.Bytes())}); err != nil {
		return err
	}
	if m.maxDeltaHistory > 0 && height > m.maxDeltaHistory {
		old := height - m.maxDeltaHistory
		_ = m.store.Update([]kvstore.Op{kvstore.Remove(deltaBlobKey(cid, old))})
	}
	return nil
}

// DeltaOf returns the recorded leaf changes for the update_contract
// call that produced height n, if still within the bounded history.
func (m *Manager) DeltaOf(cid types.ContractId, n uint64) ([]LeafChange, bool, error) {
	raw, ok, err := m.store.Get(deltaBlobKey(cid, n))
	if err != nil || !ok {
		return nil, false, err
	}
	var changes []LeafChange
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&changes); err != nil {
		return nil, false, fmt.Errorf("zkstate: decode delta: %w", err)
	}
	return changes, true, nil
}

// RollbackContract undoes the most recent update_contract call by
// replaying its recorded delta in reverse, and returns the resulting
// (previous) root. It reports ok=false when no delta is available for
// the current height (the contract must then be marked outdated by the
// caller).
func (m *Manager) RollbackContract(cid types.ContractId) (root [32]byte, ok bool, err error) {
	t, exists, err := m.loadTree(cid)
	if err != nil || !exists || t.Height == 0 {
		return [32]byte{}, false, err
	}
	changes, found, err := m.DeltaOf(cid, t.Height)
	if err != nil {
		return [32]byte{}, false, err
	}
	if !found {
		return [32]byte{}, false, nil
	}
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if c.Old == ([32]byte{}) {
			delete(t.Leaves, c.Index)
			t.Nodes[nodeAddr{Level: TreeDepth, Index: c.Index}] = [32]byte{}
		}
	}
	// Recompute every touched path from the restored leaves rather than
	// trusting stored internal-node hashes, which may have been
	// overwritten by the update being undone.
	touched := map[uint64]bool{}
	for _, c := range changes {
		touched[c.Index] = true
	}
	for idx := range touched {
		if v, present := t.Leaves[idx]; present {
			m.setLeaf(t, idx, v)
		} else {
			m.setLeaf(t, idx, nil)
		}
	}
	t.Height--
	if err := m.saveTree(cid, t); err != nil {
		return [32]byte{}, false, err
	}
	_ = m.store.Update([]kvstore.Op{kvstore.Remove(deltaBlobKey(cid, t.Height+1))})
	return m.root(t), true, nil
}

// ResetContract replaces the contract's tree wholesale with full (a
// map from leaf index to raw payload), setting its height, and returns
// the storage-size delta plus a sequence of roots, newest first: the
// root of full itself, then one root per delta still in the log,
// walking down from height. Nothing in this package checks these roots
// against on-chain compressed states.
func (m *Manager) ResetContract(cid types.ContractId, height uint64, full map[uint64][]byte) (sizeDelta int64, rollbackRoots [][32]byte, err error) {
	prevSize := 0
	if t, ok, lerr := m.loadTree(cid); lerr == nil && ok {
		for _, v := range t.Leaves {
			prevSize += len(v)
		}
	} else if lerr != nil {
		return 0, nil, lerr
	}

	nt := newContractTree()
	indices := make([]uint64, 0, len(full))
	for idx := range full {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	newSize := 0
	for _, idx := range indices {
		m.setLeaf(nt, idx, full[idx])
		newSize += len(full[idx])
	}
	nt.Height = height
	if err := m.saveTree(cid, nt); err != nil {
		return 0, nil, err
	}

	roots := [][32]byte{m.root(nt)}
	cur := height
	for {
		changes, found, derr := m.DeltaOf(cid, cur)
		if derr != nil {
			return 0, nil, derr
		}
		if !found {
			break
		}
		for _, c := range changes {
			nt.Nodes[nodeAddr{Level: TreeDepth, Index: c.Index}] = c.Old
		}
		// Recompute ancestors for every reverted leaf.
		for _, c := range changes {
			if c.Old == ([32]byte{}) {
				delete(nt.Leaves, c.Index)
			}
			m.setLeaf(nt, c.Index, nt.Leaves[c.Index])
		}
		cur--
		roots = append(roots, m.root(nt))
	}
	return int64(newSize - prevSize), roots, nil
}

// DeleteContract drops a contract's entire tree and delta log. Only the
// tree/height/delta blobs are removed here; removing the on-chain
// ContractAccount record itself is the chain engine's responsibility.
func (m *Manager) DeleteContract(cid types.ContractId) error {
	t, ok, err := m.loadTree(cid)
	if err != nil {
		return err
	}
	ops := []kvstore.Op{kvstore.Remove(treeBlobKey(cid))}
	if ok {
		for h := uint64(1); h <= t.Height; h++ {
			ops = append(ops, kvstore.Remove(deltaBlobKey(cid, h)))
		}
	}
	return m.store.Update(ops)
}

// GetFullState dumps every populated leaf, for generate_state_patch's
// Full variant and for tests.
func (m *Manager) GetFullState(cid types.ContractId) (map[uint64][]byte, error) {
	t, ok, err := m.loadTree(cid)
	if err != nil || !ok {
		return nil, err
	}
	out := make(map[uint64][]byte, len(t.Leaves))
	for k, v := range t.Leaves {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

// ApplyDelta applies a previously-captured leaf-change set to the
// contract's tree (the mirror image of DeltaOf), used by
// update_states when applying a ZkStatePatch Delta.
func (m *Manager) ApplyDelta(cid types.ContractId, changes []LeafChange) error {
	t, ok, err := m.loadTree(cid)
	if err != nil {
		return err
	}
	if !ok {
		t = newContractTree()
	}
	for _, c := range changes {
		if c.New == ([32]byte{}) {
			delete(t.Leaves, c.Index)
			m.setLeaf(t, c.Index, nil)
			continue
		}
		// The value itself travels out-of-band in the patch payload;
		// callers pass raw values via UpdateContract when they have
		// them. ApplyDelta is used when only hashes are available
		// (pure verification / rollback-history replay).
		t.Nodes[nodeAddr{Level: TreeDepth, Index: c.Index}] = c.New
		cur, curHash := c.Index, c.New
		for level := uint8(TreeDepth); level > 0; level-- {
			sibling := m.nodeAt(t, level, cur^1)
			if cur%2 == 0 {
				curHash = m.hasher.Hash(curHash, sibling)
			} else {
				curHash = m.hasher.Hash(sibling, curHash)
			}
			cur /= 2
			t.Nodes[nodeAddr{Level: level - 1, Index: cur}] = curHash
		}
	}
	t.Height++
	return m.saveTree(cid, t)
}
