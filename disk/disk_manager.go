// Package disk implements the block-I/O adapter the buffer pool consumes.
// It owns durable storage; the buffer pool never touches the file directly.
package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"pagecache/common"
)

// PageSize is the fixed size, in bytes, of every page and every I/O this
// adapter performs.
const PageSize = 4096

// IDiskManager is the only polymorphic boundary the buffer pool depends on:
// the capability set {ReadPage, WritePage, Deallocate} plus page-id minting.
// It is injected at buffer pool construction, never implemented by
// inheritance.
type IDiskManager interface {
	// ReadPage fills dest (which must have len == PageSize) with the
	// on-disk content of pageID.
	ReadPage(pageID common.PageID, dest []byte) error

	// WritePage durably (to the OS, not necessarily to platter) persists
	// data (len == PageSize) as pageID.
	WritePage(pageID common.PageID, data []byte) error

	// NewPage mints a page identifier, preferring one from the on-disk free
	// list before bumping the monotonic counter.
	NewPage() common.PageID

	// Deallocate hints that pageID is no longer in use and may be reused by
	// a future NewPage call.
	Deallocate(pageID common.PageID)

	Close() error
}

// ErrPartialIO signals a short read or write against the backing file; it
// should never happen against a well-formed page store.
var ErrPartialIO = errors.New("disk: partial page read or write")

// Manager is the file-backed IDiskManager. Page 0 is reserved for a small
// header tracking the on-disk free list; real pages start at 1.
type Manager struct {
	file       *os.File
	lastPageID common.PageID
	mu         sync.Mutex
	header     *header
	log        *slog.Logger
}

type header struct {
	freeListHead common.PageID
	freeListTail common.PageID
}

var _ IDiskManager = &Manager{}

// NewDiskManager opens (creating if needed) file as a page store.
func NewDiskManager(file string) (*Manager, error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	d := &Manager{
		file: f,
		log:  slog.Default().With("component", "disk.Manager", "file", file),
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		d.lastPageID = 0 // page 0 is reserved for the header
		d.initHeader()
		d.log.Debug("initialized new page store")
		return d, nil
	}

	d.lastPageID = common.PageID(stat.Size()/PageSize) - 1
	d.log.Debug("opened existing page store", "last_page_id", d.lastPageID)
	return d, nil
}

// ReadPage fills dest with pageID's on-disk bytes. A page that was minted by
// NewPage but never yet written back reads as all zeros rather than
// erroring: the file may simply not have been extended that far yet.
func (d *Manager) ReadPage(pageID common.PageID, dest []byte) error {
	if len(dest) != PageSize {
		return fmt.Errorf("disk: ReadPage destination must be %d bytes, got %d", PageSize, len(dest))
	}

	if _, err := d.file.Seek(int64(PageSize)*int64(pageID), io.SeekStart); err != nil {
		return err
	}

	n, err := io.ReadFull(d.file, dest)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		for i := n; i < len(dest); i++ {
			dest[i] = 0
		}
		return nil
	}
	if err != nil {
		return err
	}
	if n != PageSize {
		return ErrPartialIO
	}
	return nil
}

func (d *Manager) WritePage(pageID common.PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("disk: WritePage payload must be %d bytes, got %d", PageSize, len(data))
	}

	if _, err := d.file.Seek(int64(PageSize)*int64(pageID), io.SeekStart); err != nil {
		return err
	}

	n, err := d.file.Write(data)
	if err != nil {
		return err
	}
	if n != PageSize {
		return ErrPartialIO
	}
	return nil
}

// NewPage pops a page id from the on-disk free list if one is available,
// otherwise bumps the monotonic counter. This lets deallocated pages be
// reused instead of growing the file forever.
func (d *Manager) NewPage() common.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p := d.popFreeList(); p != common.InvalidPageID {
		return p
	}

	d.lastPageID++
	return d.lastPageID
}

// Deallocate appends pageID to the on-disk free list's tail.
func (d *Manager) Deallocate(pageID common.PageID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.getHeader()

	if h.freeListHead == common.InvalidPageID {
		h.freeListHead, h.freeListTail = pageID, pageID
		d.setHeader(h)
		return
	}

	// the freed tail page's own bytes are repurposed to store the next
	// free-list pointer in their first 8 bytes; a page that was never
	// written yet reads back as zeros via ReadPage, which is fine here.
	data := make([]byte, PageSize)
	common.PanicIfErr(d.ReadPage(h.freeListTail, data))

	binary.BigEndian.PutUint64(data, pageID)
	common.PanicIfErr(d.WritePage(h.freeListTail, data))

	h.freeListTail = pageID
	d.setHeader(h)
}

func (d *Manager) Close() error {
	return d.file.Close()
}

func (d *Manager) popFreeList() common.PageID {
	h := d.getHeader()
	if h.freeListHead == common.InvalidPageID {
		return common.InvalidPageID
	}

	pageID := h.freeListHead
	if h.freeListHead == h.freeListTail {
		h.freeListHead, h.freeListTail = common.InvalidPageID, common.InvalidPageID
		d.setHeader(h)
		return pageID
	}

	data := make([]byte, PageSize)
	common.PanicIfErr(d.ReadPage(h.freeListHead, data))
	h.freeListHead = binary.BigEndian.Uint64(data)
	d.setHeader(h)
	return pageID
}

func (d *Manager) getHeader() header {
	if d.header != nil {
		return *d.header
	}

	data := make([]byte, PageSize)
	common.PanicIfErr(d.ReadPage(0, data))

	h := header{
		freeListHead: binary.BigEndian.Uint64(data[:8]),
		freeListTail: binary.BigEndian.Uint64(data[8:16]),
	}
	d.header = &h
	return h
}

func (d *Manager) setHeader(h header) {
	d.header = &h
	page := make([]byte, PageSize)
	binary.BigEndian.PutUint64(page[:8], h.freeListHead)
	binary.BigEndian.PutUint64(page[8:16], h.freeListTail)
	common.PanicIfErr(d.WritePage(0, page))
}

func (d *Manager) initHeader() {
	d.setHeader(header{})
}
