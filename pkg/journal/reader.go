package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Reader provides sequential access to journal entries
type Reader struct {
	file   *os.File
	reader *bufio.Reader
	offset int64
	entry  *Entry
	err    error
}

// NewReader opens a journal for reading
func NewReader(config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &Reader{
		file:   file,
		reader: bufio.NewReader(file),
		offset: config.StartOffset,
	}, nil
}

// ReadNext reads the next entry. It returns io.EOF at a clean end of the
// journal and ErrCorruption for a torn or damaged entry.
func (r *Reader) ReadNext() (*Entry, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r.reader, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header[4:8])
	if size > MaxPayloadSize {
		return nil, ErrCorruption
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.reader, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	e, err := decodeEntry(header, payload)
	if err != nil {
		return nil, err
	}
	r.offset += int64(headerSize) + int64(size)
	return e, nil
}

// Offset returns the offset just past the last valid entry
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next advances to the next entry, reporting whether one was read.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	r.entry, r.err = r.ReadNext()
	return r.err == nil
}

// Entry returns the entry read by the last successful Next.
func (r *Reader) Entry() *Entry {
	return r.entry
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (r *Reader) Err() error {
	if r.err == io.EOF {
		return nil
	}
	return r.err
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll returns every valid entry in the journal at path. Entries before
// a corrupt tail are returned together with ErrCorruption.
func ReadAll(path string) ([]*Entry, error) {
	r, err := NewReader(ReaderConfig{FilePath: path})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []*Entry
	for r.Next() {
		entries = append(entries, r.Entry())
	}
	return entries, r.Err()
}
