package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreGetMissingKey(t *testing.T) {
	s := NewMemStore()
	_, ok, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemStorePutThenGet(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("v1"))}))
	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestMemStoreRollbackUndoesLastBatch(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("v1"))}))
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("v2"))}))

	undo, err := s.Rollback()
	require.NoError(t, err)
	require.NoError(t, s.Update(undo))

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestMemStoreRollbackUndoesRemove(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("v1"))}))
	require.NoError(t, s.Update([]Op{Remove([]byte("k"))}))

	undo, err := s.Rollback()
	require.NoError(t, err)
	require.NoError(t, s.Update(undo))

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestMirrorReadsFallThroughToParent(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("parent-value"))}))

	m := s.Mirror()
	v, ok, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("parent-value"), v)
}

func TestMirrorWritesDoNotTouchParentUntilCommitted(t *testing.T) {
	s := NewMemStore()
	m := s.Mirror()
	require.NoError(t, m.Update([]Op{Put([]byte("k"), []byte("mirror-value"))}))

	_, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("mirror-value"), v)
}

func TestMirrorToOpsAppliesCleanlyToParent(t *testing.T) {
	s := NewMemStore()
	m := s.Mirror()
	require.NoError(t, m.Update([]Op{Put([]byte("k"), []byte("v"))}))
	require.NoError(t, s.Update(m.ToOps()))

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}

func TestMirrorRollbackRestoresParentState(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("original"))}))

	m := s.Mirror()
	require.NoError(t, m.Update([]Op{Put([]byte("k"), []byte("overwritten"))}))

	undo, err := m.Rollback()
	require.NoError(t, err)

	m2 := s.Mirror()
	require.NoError(t, m2.Update(undo))
	v, ok, err := m2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("original"), v)
}

func TestMirrorRollbackOfNewKeyRemovesIt(t *testing.T) {
	s := NewMemStore()
	m := s.Mirror()
	require.NoError(t, m.Update([]Op{Put([]byte("new-key"), []byte("v"))}))

	undo, err := m.Rollback()
	require.NoError(t, err)

	m2 := s.Mirror()
	require.NoError(t, m2.Update(undo))
	_, ok, err := m2.Get([]byte("new-key"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNestedMirrorReadsFallThroughBothLevels(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Update([]Op{Put([]byte("k"), []byte("root-value"))}))

	outer := s.Mirror()
	inner := outer.Mirror()

	v, ok, err := inner.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("root-value"), v)
}

func TestNestedMirrorWriteVisibleToInnerNotOuterParent(t *testing.T) {
	s := NewMemStore()
	outer := s.Mirror()
	inner := outer.Mirror()

	require.NoError(t, inner.Update([]Op{Put([]byte("k"), []byte("inner-value"))}))

	v, ok, err := inner.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("inner-value"), v)

	_, ok, err = outer.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMirrorDiscardClearsBufferedWrites(t *testing.T) {
	s := NewMemStore()
	m := s.Mirror()
	require.NoError(t, m.Update([]Op{Put([]byte("k"), []byte("v"))}))
	m.Discard()

	require.Empty(t, m.ToOps())
	_, ok, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyHelpersPrefixAndVaryByInput(t *testing.T) {
	require.NotEqual(t, AccountKey([]byte("a")), ContractKey([]byte("a")))
	require.NotEqual(t, HeaderKey(1), HeaderKey(2))
	require.Equal(t, HeightKey(), HeightKey())
	require.NotEqual(t, byte(ZkPrefix), byte(prefixAccount))
}
