// Package replacer implements the LRU-K victim selection policy (component
// B): among evictable frames, evict the one with the largest backward
// k-distance, with frames that have been accessed fewer than k times treated
// as having infinite backward k-distance (ties broken by earliest access).
// Grounded on original_source/src/buffer/lru_k_replacer.cpp.
package replacer

import (
	"container/list"
	"fmt"

	"pagecache/common"
)

// node tracks one frame's access history. Once len(history) reaches k, only
// the k most recent timestamps are kept (the rest are irrelevant to the
// backward k-distance computation).
type node struct {
	frameID   common.FrameID
	history   []uint64
	evictable bool
}

// LRUKReplacer chooses a victim frame among those marked evictable. Frames
// with fewer than k accesses live in a FIFO list (new_frame) ordered by
// first access; once a frame accumulates k accesses it moves to cache_frame,
// ordered by backward k-distance via a plain scan (k is expected to be
// small, single digits, so this beats maintaining a balanced structure).
type LRUKReplacer struct {
	k int

	// replacerSize is fixed at construction time: the maximum number of
	// frames this replacer will ever be asked to track. curr_size (the
	// evictable count) is the only thing that changes afterward.
	replacerSize int
	currSize     int

	currentTimestamp uint64

	newFrame   *list.List // *node, ordered oldest-first, entries with < k accesses
	cacheFrame *list.List // *node, entries with >= k accesses

	newElems   map[common.FrameID]*list.Element
	cacheElems map[common.FrameID]*list.Element
}

// NewLRUKReplacer constructs a replacer for up to numFrames distinct frame
// ids, evicting by backward k-distance with history depth k.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	if k < 1 {
		panic("replacer: k must be >= 1")
	}
	return &LRUKReplacer{
		k:            k,
		replacerSize: numFrames,
		newFrame:     list.New(),
		cacheFrame:   list.New(),
		newElems:     make(map[common.FrameID]*list.Element),
		cacheElems:   make(map[common.FrameID]*list.Element),
	}
}

func (r *LRUKReplacer) checkOverstep(frameID common.FrameID) {
	if frameID < 0 || frameID >= r.replacerSize {
		panic(fmt.Sprintf("replacer: frame id %d out of range [0, %d)", frameID, r.replacerSize))
	}
}

// RecordAccess registers that frameID was accessed at the current timestamp,
// advancing the replacer's logical clock. A frame's first RecordAccess
// implicitly creates it as non-evictable.
func (r *LRUKReplacer) RecordAccess(frameID common.FrameID) {
	r.checkOverstep(frameID)
	r.currentTimestamp++

	if elem, ok := r.newElems[frameID]; ok {
		n := elem.Value.(*node)
		n.history = append(n.history, r.currentTimestamp)
		if len(n.history) >= r.k {
			r.newFrame.Remove(elem)
			delete(r.newElems, frameID)
			r.cacheElems[frameID] = r.insertByKDistance(n)
		}
		return
	}

	if elem, ok := r.cacheElems[frameID]; ok {
		n := elem.Value.(*node)
		n.history = append(n.history, r.currentTimestamp)
		if len(n.history) > r.k {
			n.history = n.history[len(n.history)-r.k:]
		}
		r.cacheFrame.Remove(elem)
		r.cacheElems[frameID] = r.insertByKDistance(n)
		return
	}

	n := &node{frameID: frameID, history: []uint64{r.currentTimestamp}}
	if r.k == 1 {
		r.cacheElems[frameID] = r.insertByKDistance(n)
	} else {
		r.newElems[frameID] = r.newFrame.PushBack(n)
	}
}

// kDistance returns n's backward k-distance: the gap between "now" and its
// k-th most recent access. Callers only invoke this once n has >= k
// accesses, so history[0] (after trimming) is always the k-th most recent.
func (n *node) kDistance(now uint64) uint64 {
	return now - n.history[0]
}

// insertByKDistance inserts n into cacheFrame, a list kept sorted descending
// by backward k-distance (largest, i.e. the best eviction candidate, at the
// front), and returns its element.
func (r *LRUKReplacer) insertByKDistance(n *node) *list.Element {
	dist := n.kDistance(r.currentTimestamp)
	for e := r.cacheFrame.Front(); e != nil; e = e.Next() {
		other := e.Value.(*node)
		if dist > other.kDistance(r.currentTimestamp) {
			return r.cacheFrame.InsertBefore(n, e)
		}
	}
	return r.cacheFrame.PushBack(n)
}

// SetEvictable changes whether frameID may be chosen by Evict. It does not
// touch replacerSize; curr_size tracks only the count of evictable frames.
func (r *LRUKReplacer) SetEvictable(frameID common.FrameID, evictable bool) {
	r.checkOverstep(frameID)

	var n *node
	if elem, ok := r.newElems[frameID]; ok {
		n = elem.Value.(*node)
	} else if elem, ok := r.cacheElems[frameID]; ok {
		n = elem.Value.(*node)
	} else {
		return
	}

	if n.evictable == evictable {
		return
	}
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
	n.evictable = evictable
}

// Evict selects the evictable frame with the largest backward k-distance
// (frames with fewer than k accesses, i.e. in new_frame, always win against
// any frame in cache_frame, and within new_frame ties go to the earliest
// access) and removes it from the replacer entirely.
func (r *LRUKReplacer) Evict() (common.FrameID, bool) {
	for e := r.newFrame.Front(); e != nil; e = e.Next() {
		n := e.Value.(*node)
		if n.evictable {
			r.newFrame.Remove(e)
			delete(r.newElems, n.frameID)
			r.currSize--
			return n.frameID, true
		}
	}

	for e := r.cacheFrame.Front(); e != nil; e = e.Next() {
		n := e.Value.(*node)
		if n.evictable {
			r.cacheFrame.Remove(e)
			delete(r.cacheElems, n.frameID)
			r.currSize--
			return n.frameID, true
		}
	}

	return 0, false
}

// Remove drops frameID from the replacer's bookkeeping outright, regardless
// of evictability. It is the buffer pool's way of saying "this frame id
// will never be looked at again" (e.g. after DeletePage), as opposed to
// Evict which is the replacer's own choice of victim.
func (r *LRUKReplacer) Remove(frameID common.FrameID) {
	r.checkOverstep(frameID)

	if elem, ok := r.newElems[frameID]; ok {
		n := elem.Value.(*node)
		if n.evictable {
			r.currSize--
		}
		r.newFrame.Remove(elem)
		delete(r.newElems, frameID)
		return
	}

	if elem, ok := r.cacheElems[frameID]; ok {
		n := elem.Value.(*node)
		if n.evictable {
			r.currSize--
		}
		r.cacheFrame.Remove(elem)
		delete(r.cacheElems, frameID)
	}
}

// Size returns the number of currently evictable frames.
func (r *LRUKReplacer) Size() int {
	return r.currSize
}
