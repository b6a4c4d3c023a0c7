package wal

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
)

// Encode serializes a Record to a compact binary form and snappy-compresses
// it, the same shape as the teacher's BinarySerDe but trimmed to the three
// fields a Record actually carries.
func Encode(rec *Record) []byte {
	raw := make([]byte, 0, 1+binary.MaxVarintLen64*2)
	raw = append(raw, byte(rec.Type))
	raw = binary.AppendUvarint(raw, uint64(rec.LSN))
	raw = binary.AppendUvarint(raw, rec.PageID)
	return snappy.Encode(nil, raw)
}

// Decode reverses Encode.
func Decode(data []byte) (*Record, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("wal: corrupt log record: %w", err)
	}
	if len(raw) < 1 {
		return nil, fmt.Errorf("wal: corrupt log record: empty")
	}

	rec := &Record{Type: RecordType(raw[0])}
	offset := 1

	lsn, n := binary.Uvarint(raw[offset:])
	if n <= 0 {
		return nil, fmt.Errorf("wal: corrupt log record: lsn")
	}
	offset += n
	rec.LSN = LSN(lsn)

	pageID, n := binary.Uvarint(raw[offset:])
	if n <= 0 {
		return nil, fmt.Errorf("wal: corrupt log record: page id")
	}
	rec.PageID = pageID

	return rec, nil
}
