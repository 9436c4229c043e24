package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedStream means the input ended in the middle of a record.
	ErrTruncatedStream = errors.New("truncated stream")
	// ErrInvalidRecordSize means a size field or payload length is impossible.
	ErrInvalidRecordSize = errors.New("invalid record size")
)

// DecodeError locates a decoding failure within a stream.
type DecodeError struct {
	Offset int64      // Stream offset of the failing record's tag
	Index  int        // Position of the failing record in the sequence
	Type   RecordType // Tag of the failing record, if it was read
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record %d (%s) at offset %d: %v", e.Index, e.Type, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
