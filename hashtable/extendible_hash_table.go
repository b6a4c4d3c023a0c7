// Package hashtable implements the directory (component A): a concurrent,
// linearizable map from key to value that grows by splitting buckets and
// doubling the directory, rather than by rehashing the whole table. Grounded
// on original_source/src/container/hash/extendible_hash_table.cpp.
package hashtable

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// HashFunc computes the hash of a key. The table is generic over key type so
// it can serve both the buffer pool's PageID->FrameID directory and any
// other page-addressable mapping; callers supply the hash so the table
// itself never needs reflection over K.
type HashFunc[K any] func(K) uint64

type entry[K comparable, V any] struct {
	key   K
	value V
}

type bucket[K comparable, V any] struct {
	depth int
	cap   int
	items []entry[K, V]
}

func newBucket[K comparable, V any](cap, depth int) *bucket[K, V] {
	return &bucket[K, V]{depth: depth, cap: cap, items: make([]entry[K, V], 0, cap)}
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.items {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, e := range b.items {
		if e.key == key {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *bucket[K, V]) isFull() bool {
	return len(b.items) >= b.cap
}

// insert overwrites an existing key's value, appends if there's room, or
// returns false if the bucket is full and the key is not already present.
func (b *bucket[K, V]) insert(key K, value V) bool {
	for i := range b.items {
		if b.items[i].key == key {
			b.items[i].value = value
			return true
		}
	}
	if b.isFull() {
		return false
	}
	b.items = append(b.items, entry[K, V]{key, value})
	return true
}

// ExtendibleHashTable is the directory: find/insert/remove under a single
// lock, global depth G, a dir of length 2^G, and buckets each at a local
// depth <= G holding at most bucketSize entries.
type ExtendibleHashTable[K comparable, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
	hash        HashFunc[K]
}

// New constructs a directory starting at global depth 0 (a single bucket).
func New[K comparable, V any](bucketSize int, hash HashFunc[K]) *ExtendibleHashTable[K, V] {
	if bucketSize < 1 {
		panic("hashtable: bucketSize must be >= 1")
	}
	return &ExtendibleHashTable[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		dir:        []*bucket[K, V]{newBucket[K, V](bucketSize, 0)},
		hash:       hash,
	}
}

func (h *ExtendibleHashTable[K, V]) indexOf(key K) int {
	mask := (1 << h.globalDepth) - 1
	return int(h.hash(key)) & mask
}

func (h *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.dir[h.indexOf(key)].find(key)
}

func (h *ExtendibleHashTable[K, V]) Remove(key K) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.dir[h.indexOf(key)].remove(key)
}

// Insert overwrites key if present, otherwise appends. When the target
// bucket is full it splits (doubling the directory first if the bucket is
// already at global depth) and retries; a single insert may trigger several
// splits in a row when every existing key collides on the new bit.
func (h *ExtendibleHashTable[K, V]) Insert(key K, value V) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.indexOf(key)
	target := h.dir[idx]

	for !target.insert(key, value) {
		if target.depth == h.globalDepth {
			h.doubleDirectory()
		}

		target.depth++
		mask := 1 << (target.depth - 1)

		b0 := newBucket[K, V](h.bucketSize, target.depth)
		b1 := newBucket[K, V](h.bucketSize, target.depth)
		h.numBuckets++

		for i := range h.dir {
			if h.dir[i] == target {
				if i&mask == 0 {
					h.dir[i] = b0
				} else {
					h.dir[i] = b1
				}
			}
		}

		for _, e := range target.items {
			ci := h.indexOf(e.key)
			h.dir[ci].insert(e.key, e.value)
		}

		idx = h.indexOf(key)
		target = h.dir[idx]
	}
}

func (h *ExtendibleHashTable[K, V]) doubleDirectory() {
	old := len(h.dir)
	grown := make([]*bucket[K, V], old*2)
	copy(grown, h.dir)
	for i := 0; i < old; i++ {
		grown[i+old] = h.dir[i]
	}
	h.dir = grown
	h.globalDepth++
}

// GlobalDepth returns the current number of bits the directory discriminates
// on; len(dir) == 1<<GlobalDepth always holds.
func (h *ExtendibleHashTable[K, V]) GlobalDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.globalDepth
}

// LocalDepth returns the local depth of the bucket key currently hashes to.
func (h *ExtendibleHashTable[K, V]) LocalDepth(key K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dir[h.indexOf(key)].depth
}

// NumBuckets returns the number of distinct buckets referenced by the
// directory (which can be far smaller than len(dir)).
func (h *ExtendibleHashTable[K, V]) NumBuckets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.numBuckets
}

// DirSize returns len(dir), i.e. 1<<GlobalDepth.
func (h *ExtendibleHashTable[K, V]) DirSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dir)
}

// HashUint64 is the default HashFunc for uint64-keyed tables (PageID is a
// uint64 alias): xxhash over the key's big-endian encoding. Using a real
// hash function here, rather than a hand-rolled mixing loop, is what keeps
// keys spread evenly across directory slots as the table grows.
func HashUint64(key uint64) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], key)
	return xxhash.Sum64(b[:])
}
