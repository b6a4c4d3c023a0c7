package wal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogManager_AppendThenFlushWritesEncodedRecords(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLogManager(&buf)

	lsn1 := lm.AppendLog(&Record{Type: TypeAllocPage, PageID: 7})
	lsn2 := lm.AppendLog(&Record{Type: TypeWriteBack, PageID: 7})
	assert.Equal(t, LSN(1), lsn1)
	assert.Equal(t, LSN(2), lsn2)

	assert.Equal(t, ZeroLSN, lm.GetFlushedLSN())

	require.NoError(t, lm.Flush())
	assert.Equal(t, LSN(2), lm.GetFlushedLSN())
	assert.True(t, buf.Len() > 0)
}

func TestLogManager_FlushWithNothingBufferedIsNoop(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLogManager(&buf)
	require.NoError(t, lm.Flush())
	assert.Equal(t, 0, buf.Len())
}

func TestNoopLogManager_NeverBlocksFlush(t *testing.T) {
	var lm NoopLogManager
	assert.Equal(t, ZeroLSN, lm.AppendLog(&Record{Type: TypeAllocPage}))
	require.NoError(t, lm.Flush())
	assert.Equal(t, LSN(^uint64(0)), lm.GetFlushedLSN())
}

func TestEncodeDecode_RoundTrips(t *testing.T) {
	rec := &Record{Type: TypeFreePage, LSN: 42, PageID: 1234}
	encoded := Encode(rec)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecode_RejectsCorruptData(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
