package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLRUKReplacer_EvictsLargestBackwardKDistance follows the canonical
// walkthrough: frames accessed fewer than k times are always preferred
// victims over ones with a full k-history, and among those, earliest access
// wins.
func TestLRUKReplacer_EvictsLargestBackwardKDistance(t *testing.T) {
	r := NewLRUKReplacer(7, 2)

	// frame 1: accessed at t1 and t7 -> reaches k=2 accesses and moves to
	// cache_frame; frames 2..6 are accessed once each at t2..t6
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(3)
	r.RecordAccess(4)
	r.RecordAccess(5)
	r.RecordAccess(6)
	r.RecordAccess(1)

	for _, f := range []int{1, 2, 3, 4, 5, 6} {
		r.SetEvictable(f, true)
	}
	r.SetEvictable(6, false) // scratch frame, not evictable

	assert.Equal(t, 5, r.Size())

	// frames 2,3,4,5 all still have < k=2 accesses; they sit in new_frame,
	// FIFO, so frame 2 (earliest, still only 1 access) is evicted first.
	f, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, 2, f)

	f, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, 3, f)
}

func TestLRUKReplacer_SetEvictableTracksSize(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	r.RecordAccess(1)
	assert.Equal(t, 0, r.Size())

	r.SetEvictable(1, true)
	assert.Equal(t, 1, r.Size())

	r.SetEvictable(1, true) // idempotent
	assert.Equal(t, 1, r.Size())

	r.SetEvictable(1, false)
	assert.Equal(t, 0, r.Size())
}

func TestLRUKReplacer_RemoveDropsFrameEntirely(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	r.RecordAccess(1)
	r.SetEvictable(1, true)
	require.Equal(t, 1, r.Size())

	r.Remove(1)
	assert.Equal(t, 0, r.Size())

	_, ok := r.Evict()
	assert.False(t, ok)
}

// TestLRUKReplacer_KEqualsOneIsPlainLRU is the degenerate case noted as a
// boundary: with k=1 every frame has its "k-distance" the moment it's first
// accessed, so eviction order collapses to plain least-recently-used.
func TestLRUKReplacer_KEqualsOneIsPlainLRU(t *testing.T) {
	r := NewLRUKReplacer(3, 1)

	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	r.RecordAccess(0) // touch 0 again, it should no longer be the LRU victim

	f, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, f)

	f, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, 2, f)

	f, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, f)
}

func TestLRUKReplacer_EvictOnEmptyReplacerReturnsFalse(t *testing.T) {
	r := NewLRUKReplacer(2, 2)
	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestLRUKReplacer_FrameIDOutOfRangePanics(t *testing.T) {
	r := NewLRUKReplacer(2, 2)
	assert.Panics(t, func() { r.RecordAccess(5) })
}
