package common

// PageID identifies a page in the disk manager's namespace. It is
// non-negative and globally unique within a single pool; InvalidPageID is
// the sentinel "no page" value.
type PageID = uint64

// FrameID indexes a slot in the buffer pool's frame array, in [0, poolSize).
type FrameID = int
