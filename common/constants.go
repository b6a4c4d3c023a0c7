package common

import "time"

const (
	// EnableLogging gates whether buffer.Pool appends records to and flushes
	// its LogManager at all. Checked inline by NewPage/DeletePage/write-back
	// rather than by swapping in a NoopLogManager, so a caller-supplied
	// LogManager can be present but dormant.
	EnableLogging = true

	// LogTimeout is the interval between buffer.Pool's background log
	// flushes. It is probably better to align this with the disk's iops rate
	// as much as possible.
	LogTimeout = time.Millisecond * 3
)

// InvalidPageID is the sentinel page identifier meaning "no page". Page 0 is
// reserved for the disk manager's own header, so real pages start at 1.
const InvalidPageID uint64 = 0
