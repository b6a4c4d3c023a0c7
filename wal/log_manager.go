// Package wal is the log manager the buffer pool may consume to order
// write-back against durability: a frame's outstanding log records must be
// flushed before the frame's dirty bytes hit disk. Recovery/replay is out of
// scope (see SPEC_FULL.md); this only tracks LSNs and flushes the byte log.
package wal

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"pagecache/common"
)

// LSN is a log sequence number. ZeroLSN means "no log record has been
// produced for this frame yet".
type LSN uint64

const ZeroLSN LSN = 0

// RecordType tags what kind of event a Record describes.
type RecordType uint8

const (
	TypeAllocPage RecordType = iota + 1
	TypeFreePage
	TypeWriteBack
)

// Record is the unit of the log. It only carries what the buffer pool
// needs to order write-back against durability, not enough to replay or
// undo anything (recovery is an explicit non-goal).
type Record struct {
	Type   RecordType
	LSN    LSN
	PageID common.PageID
}

// LogManager is consumed, optionally, by the buffer pool: spec.md notes the
// reference core never calls it, but a production build would flush the log
// up to a frame's LSN before writing that frame back. A NoopLogManager
// keeps that truly optional.
type LogManager interface {
	// AppendLog stamps rec with the next LSN, buffers its encoded bytes and
	// returns the assigned LSN. It does not block on durability.
	AppendLog(rec *Record) LSN

	// Flush durably writes every buffered record produced so far.
	Flush() error

	// GetFlushedLSN returns the highest LSN known to be durable.
	GetFlushedLSN() LSN
}

// NoopLogManager discards every record; GetFlushedLSN always reports
// everything flushed so FlushPage never blocks on it.
type NoopLogManager struct{}

var _ LogManager = NoopLogManager{}

func (NoopLogManager) AppendLog(*Record) LSN { return ZeroLSN }
func (NoopLogManager) Flush() error          { return nil }
func (NoopLogManager) GetFlushedLSN() LSN    { return LSN(^uint64(0)) }

// Manager is a minimal, file-backed LogManager: records are snappy-binary
// encoded (see serde.go) and appended to an in-memory buffer by AppendLog;
// Flush writes that buffer to the underlying io.Writer and then clears it.
type Manager struct {
	mu         sync.Mutex
	w          io.Writer
	currLSN    uint64
	flushedLSN uint64
	buf        bytes.Buffer
	stats      *common.Stats
}

var _ LogManager = &Manager{}

func NewLogManager(w io.Writer) *Manager {
	return &Manager{w: w, stats: common.NewStats()}
}

// Stats exposes flush-size/count observability, e.g. "avg_flush_size".
func (m *Manager) Stats() *common.Stats {
	return m.stats
}

func (m *Manager) AppendLog(rec *Record) LSN {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.LSN = LSN(atomic.AddUint64(&m.currLSN, 1))

	encoded := Encode(rec)
	var lenPrefix [4]byte
	putUint32(lenPrefix[:], uint32(len(encoded)))
	m.buf.Write(lenPrefix[:])
	m.buf.Write(encoded)

	return rec.LSN
}

// Flush writes the buffer accumulated since the last flush under the lock,
// then clears it and advances the flushed-LSN watermark to the LSN last
// assigned by AppendLog. If the write fails, the buffer and watermark are
// left unchanged.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.buf.Len() == 0 {
		return nil
	}

	if _, err := m.w.Write(m.buf.Bytes()); err != nil {
		return err
	}
	m.stats.Avg("avg_flush_size", float64(m.buf.Len()))
	m.buf.Reset()
	atomic.StoreUint64(&m.flushedLSN, atomic.LoadUint64(&m.currLSN))
	return nil
}

func (m *Manager) GetFlushedLSN() LSN {
	return LSN(atomic.LoadUint64(&m.flushedLSN))
}

func putUint32(dest []byte, v uint32) {
	dest[0] = byte(v >> 24)
	dest[1] = byte(v >> 16)
	dest[2] = byte(v >> 8)
	dest[3] = byte(v)
}
