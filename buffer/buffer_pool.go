// Package buffer implements the buffer pool manager (component C): the
// fixed-size cache of disk pages sitting in front of disk.IDiskManager,
// wiring the extendible-hash directory (component A) and the LRU-K replacer
// (component B) together under a single lock. Grounded in shape on
// thetarby-helindb/buffer/buffer_pool.go's v1 (synchronous, single-lock)
// design; the async per-frame "resolve" state machine of buffer_pool_v2.go
// is not carried, since every page fetch here completes its I/O while
// holding the pool lock.
package buffer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagecache/common"
	"pagecache/disk"
	"pagecache/hashtable"
	"pagecache/replacer"
	"pagecache/wal"
)

// Config parameterizes a Pool at construction time.
type Config struct {
	// PoolSize is the fixed number of frames the pool holds.
	PoolSize int

	// ReplacerK is the LRU-K history depth (k).
	ReplacerK int

	// BucketSize bounds how many page ids a single extendible-hash bucket
	// holds before it splits.
	BucketSize int

	// LogManager, if non-nil, is flushed up to a frame's LSN before that
	// frame's dirty bytes are written back. Defaults to wal.NoopLogManager.
	LogManager wal.LogManager
}

type frameMeta struct {
	pageID common.PageID
	pinCnt int
	dirty  bool
	lsn    wal.LSN
	data   []byte
}

// Pool is the buffer pool manager. All page table and frame metadata
// mutation happens under mu; disk I/O and log flush also happen while mu is
// held, which is simpler than a striped or async design at the cost of
// pool-wide I/O serialization (see SPEC_FULL.md's concurrency section for
// why that tradeoff is the one this spec asks for).
type Pool struct {
	mu sync.Mutex

	frames   []*frameMeta
	freeList []common.FrameID
	dir      *hashtable.ExtendibleHashTable[common.PageID, common.FrameID]
	replacer *replacer.LRUKReplacer

	disk disk.IDiskManager
	log  wal.LogManager

	stats *common.Stats
	slog  *slog.Logger
	id    uuid.UUID

	stopBackgroundFlush chan struct{}
	closeOnce           sync.Once
}

// NewPool constructs a Pool of cfg.PoolSize frames backed by dm.
func NewPool(cfg Config, dm disk.IDiskManager) *Pool {
	if cfg.PoolSize < 1 {
		panic("buffer: PoolSize must be >= 1")
	}
	if cfg.ReplacerK < 1 {
		panic("buffer: ReplacerK must be >= 1")
	}
	if cfg.BucketSize < 1 {
		cfg.BucketSize = 4
	}

	lm := cfg.LogManager
	backgroundFlush := lm != nil
	if lm == nil {
		lm = wal.NoopLogManager{}
	}

	id := uuid.New()

	p := &Pool{
		frames:   make([]*frameMeta, cfg.PoolSize),
		freeList: make([]common.FrameID, cfg.PoolSize),
		dir:      hashtable.New[common.PageID, common.FrameID](cfg.BucketSize, hashtable.HashUint64),
		replacer: replacer.NewLRUKReplacer(cfg.PoolSize, cfg.ReplacerK),
		disk:     dm,
		log:      lm,
		stats:    common.NewStats(),
		slog:     slog.Default().With("component", "buffer.Pool", "pool_id", id.String()),
		id:       id,
	}
	for i := 0; i < cfg.PoolSize; i++ {
		p.freeList[i] = i
	}

	// A caller-supplied LogManager is assumed to want periodic durability
	// independent of eviction/flush traffic; NoopLogManager has nothing to
	// flush so no background loop is started for it.
	if backgroundFlush {
		p.stopBackgroundFlush = make(chan struct{})
		go p.runBackgroundFlush()
	}

	return p
}

// runBackgroundFlush flushes the log manager every common.LogTimeout,
// grounded on the teacher's disk/wal/group_writer.go ticker loop.
func (p *Pool) runBackgroundFlush() {
	ticker := time.NewTicker(common.LogTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.log.Flush(); err != nil {
				p.slog.Error("background log flush failed", "err", err)
			}
		case <-p.stopBackgroundFlush:
			return
		}
	}
}

// Close stops the pool's background log flush loop, if one is running. It
// does not flush or close the underlying disk manager or log manager.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if p.stopBackgroundFlush != nil {
			close(p.stopBackgroundFlush)
		}
	})
}

// reserveFrame returns a frame id ready to hold a new page, first from the
// free list, then by asking the replacer for a victim. Returns false if the
// pool is entirely pinned (no frame is free or evictable).
func (p *Pool) reserveFrame() (common.FrameID, bool) {
	if n := len(p.freeList); n > 0 {
		f := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return f, true
	}

	victim, ok := p.replacer.Evict()
	if !ok {
		return 0, false
	}

	fm := p.frames[victim]
	if fm != nil {
		if fm.dirty {
			if err := p.writeBackLocked(fm); err != nil {
				p.slog.Error("evicting dirty frame despite failed write-back; edits are lost", "page_id", fm.pageID, "err", err)
			}
		}
		p.dir.Remove(fm.pageID)
		p.stats.Incr("eviction")
	}
	p.frames[victim] = nil
	return victim, true
}

// writeBackLocked flushes the log up to fm's LSN and writes fm's bytes to
// disk. Dirty is sticky: it is only cleared once the write actually
// succeeds, so a transient disk failure leaves the page correctly marked
// as still needing a write-back.
func (p *Pool) writeBackLocked(fm *frameMeta) error {
	if common.EnableLogging {
		if err := p.log.Flush(); err != nil {
			p.slog.Error("log flush before write-back failed", "page_id", fm.pageID, "err", err)
			return err
		}
	}
	if err := p.disk.WritePage(fm.pageID, fm.data); err != nil {
		p.slog.Error("write-back failed", "page_id", fm.pageID, "err", err)
		return err
	}
	fm.dirty = false
	return nil
}

// NewPage allocates a fresh page id from the disk manager, installs it in a
// frame (evicting a victim if the pool is full), and returns it pinned.
func (p *Pool) NewPage() (common.PageID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.reserveFrame()
	if !ok {
		return 0, false
	}

	pageID := p.disk.NewPage()
	var lsn wal.LSN
	if common.EnableLogging {
		lsn = p.log.AppendLog(&wal.Record{Type: wal.TypeAllocPage, PageID: pageID})
	}

	fm := &frameMeta{pageID: pageID, pinCnt: 1, dirty: false, lsn: lsn, data: make([]byte, disk.PageSize)}
	p.frames[frameID] = fm
	p.dir.Insert(pageID, frameID)
	p.replacer.RecordAccess(frameID)
	p.replacer.SetEvictable(frameID, false)

	return pageID, true
}

// FetchPage pins pageID, reading it from disk into a frame first if it
// isn't already resident.
func (p *Pool) FetchPage(pageID common.PageID) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.dir.Find(pageID); ok {
		fm := p.frames[frameID]
		fm.pinCnt++
		p.replacer.RecordAccess(frameID)
		p.replacer.SetEvictable(frameID, false)
		p.stats.Incr("hit")
		return fm.data, true
	}

	p.stats.Incr("miss")

	frameID, ok := p.reserveFrame()
	if !ok {
		return nil, false
	}

	data := make([]byte, disk.PageSize)
	if err := p.disk.ReadPage(pageID, data); err != nil {
		p.frames[frameID] = nil
		p.freeList = append(p.freeList, frameID)
		p.slog.Error("fetch page: read failed", "page_id", pageID, "err", err)
		return nil, false
	}

	fm := &frameMeta{pageID: pageID, pinCnt: 1, data: data}
	p.frames[frameID] = fm
	p.dir.Insert(pageID, frameID)
	p.replacer.RecordAccess(frameID)
	p.replacer.SetEvictable(frameID, false)

	return fm.data, true
}

// UnpinPage decrements pageID's pin count, marking it dirty if isDirty is
// true (a page once made dirty stays dirty until write-back, even across
// multiple unpins by different callers). Once pin count reaches zero the
// frame becomes evictable. Returns false if pageID isn't resident or its
// pin count is already zero.
func (p *Pool) UnpinPage(pageID common.PageID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.dir.Find(pageID)
	if !ok {
		return false
	}

	fm := p.frames[frameID]
	if fm.pinCnt <= 0 {
		return false
	}

	if isDirty {
		fm.dirty = true
	}

	fm.pinCnt--
	if fm.pinCnt == 0 {
		p.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage unconditionally writes pageID's frame back to disk, regardless
// of its dirty bit or pin count; this is the operation a checkpoint would
// call. Returns false if pageID isn't resident or if the write-back failed.
func (p *Pool) FlushPage(pageID common.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.dir.Find(pageID)
	if !ok {
		return false
	}

	return p.writeBackLocked(p.frames[frameID]) == nil
}

// FlushAllPages writes every resident dirty page back to disk; a run with
// no intervening edits performs zero writes.
func (p *Pool) FlushAllPages() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, fm := range p.frames {
		if fm != nil && fm.dirty {
			p.writeBackLocked(fm)
		}
	}
}

// DeletePage removes pageID from the pool and hints to the disk manager
// that its storage may be reused. A pinned page cannot be deleted (returns
// false). A page that isn't resident is treated as already deleted and
// returns true, matching "ensure absent" semantics rather than "page must
// have existed".
func (p *Pool) DeletePage(pageID common.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.dir.Find(pageID)
	if !ok {
		return true
	}

	fm := p.frames[frameID]
	if fm.pinCnt > 0 {
		return false
	}

	p.dir.Remove(pageID)
	p.replacer.Remove(frameID)
	p.frames[frameID] = nil
	p.freeList = append(p.freeList, frameID)

	if common.EnableLogging {
		p.log.AppendLog(&wal.Record{Type: wal.TypeFreePage, PageID: pageID})
	}
	p.disk.Deallocate(pageID)

	return true
}

// Stats exposes the pool's hit/miss/eviction counters for observability.
func (p *Pool) Stats() *common.Stats {
	return p.stats
}

func (p *Pool) String() string {
	return fmt.Sprintf("buffer.Pool{id: %s, frames: %d}", p.id, len(p.frames))
}
