package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(k uint64) uint64 { return k }

func TestExtendibleHashTable_InsertFindRemove(t *testing.T) {
	h := New[uint64, string](2, identity)

	h.Insert(1, "a")
	h.Insert(2, "b")

	v, ok := h.Find(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = h.Find(2)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = h.Find(3)
	assert.False(t, ok)

	assert.True(t, h.Remove(1))
	_, ok = h.Find(1)
	assert.False(t, ok)
	assert.False(t, h.Remove(1))
}

func TestExtendibleHashTable_OverwriteExistingKey(t *testing.T) {
	h := New[uint64, string](2, identity)
	h.Insert(5, "first")
	h.Insert(5, "second")

	v, ok := h.Find(5)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

// TestExtendibleHashTable_SplitsAndDoublesDirectory inserts keys that collide
// on low-order bits with a bucket size of 1, forcing repeated splits, and
// checks the global depth after each doubling, that every key stays
// findable, and that len(dir) == 2^G.
func TestExtendibleHashTable_SplitsAndDoublesDirectory(t *testing.T) {
	h := New[uint64, int](1, identity)

	assert.Equal(t, 0, h.GlobalDepth())
	assert.Equal(t, 1, h.DirSize())

	h.Insert(0, 0)
	h.Insert(1, 1)
	assert.Equal(t, 1, h.GlobalDepth())
	assert.Equal(t, 2, h.DirSize())

	h.Insert(2, 2)
	assert.Equal(t, 2, h.GlobalDepth())
	assert.Equal(t, 4, h.DirSize())

	for _, key := range []uint64{0, 1, 2} {
		v, ok := h.Find(key)
		require.True(t, ok)
		assert.Equal(t, int(key), v)
	}

	assert.Equal(t, 1<<h.GlobalDepth(), h.DirSize())
}

func TestExtendibleHashTable_ManyKeysRemainFindable(t *testing.T) {
	h := New[uint64, uint64](3, HashUint64)

	const n = 500
	for i := uint64(0); i < n; i++ {
		h.Insert(i, i*2)
	}

	for i := uint64(0); i < n; i++ {
		v, ok := h.Find(i)
		require.True(t, ok)
		assert.Equal(t, i*2, v)
	}

	assert.Equal(t, 1<<h.GlobalDepth(), h.DirSize())
}
