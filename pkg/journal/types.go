// Package journal keeps an append-only, checksummed record of every
// campaign iteration. Each entry is framed as
//
//	[CRC32:4][Size:4][Timestamp:8][Payload:Size]
//
// with little-endian integers, a CRC32 (IEEE) over everything after the
// checksum and a msgpack payload. A torn or corrupt tail is truncated when
// the journal is reopened for writing.
package journal

import (
	"time"
)

const headerSize = 16

// MaxPayloadSize bounds one entry payload.
const MaxPayloadSize = 1 << 20

// Entry is one iteration outcome.
type Entry struct {
	Campaign   string        `msgpack:"campaign"`
	Seed       uint64        `msgpack:"seed"`
	Iteration  int           `msgpack:"iteration"`
	Outcome    string        `msgpack:"outcome"`
	Signature  string        `msgpack:"signature,omitempty"`
	Strategies []string      `msgpack:"strategies"`
	Error      string        `msgpack:"error,omitempty"`
	FailureDir string        `msgpack:"failure_dir,omitempty"`
	Load       time.Duration `msgpack:"load_ns"`
	Time       time.Time     `msgpack:"-"`
}

// WriterConfig holds configuration for the journal writer
type WriterConfig struct {
	FilePath      string        // Path to the journal file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// ReaderConfig holds configuration for the journal reader
type ReaderConfig struct {
	FilePath    string // Path to the journal file
	StartOffset int64  // Offset to start reading from
}

// RecoveryResult reports what opening a journal for writing repaired.
type RecoveryResult struct {
	EntriesValidated int64
	BytesTruncated   int64
	FileSizeBefore   int64
	FileSizeAfter    int64
}

// Errors
var (
	ErrCorruption = &JournalError{"journal corruption detected"}
	ErrTooLarge   = &JournalError{"journal entry too large"}
)

// JournalError represents a journal error
type JournalError struct {
	Message string
}

func (e *JournalError) Error() string {
	return e.Message
}
