package journal

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultBufferSize is used when WriterConfig.BufferSize is unset.
const DefaultBufferSize = 32 * 1024

// Writer appends entries to a journal file
type Writer struct {
	file       *os.File
	writer     *bufio.Writer
	fsyncTimer *time.Timer
	config     WriterConfig
	mutex      sync.Mutex
	offset     int64
	recovery   *RecoveryResult
}

// NewWriter opens the journal for appending, truncating any corrupt tail first.
func NewWriter(config WriterConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}

	recovery, err := Recover(config.FilePath)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		file:     file,
		writer:   bufio.NewWriterSize(file, config.BufferSize),
		config:   config,
		offset:   recovery.FileSizeAfter,
		recovery: recovery,
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			_ = w.sync()
		})
	}
	return w, nil
}

// Append writes e and returns the offset it starts at. A zero Time is set
// to now.
func (w *Writer) Append(e *Entry) (int64, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := encodeEntry(e)
	if err != nil {
		return 0, err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}
	offset := w.offset
	w.offset += int64(n)

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}
	return offset, nil
}

// Sync forces a fsync to disk
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes pending entries and closes the file
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}
	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the current size of the journal
func (w *Writer) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *Writer) Path() string {
	return w.config.FilePath
}

// Recovery reports what was repaired when the writer was opened.
func (w *Writer) Recovery() *RecoveryResult {
	return w.recovery
}

// Recover scans the journal at path and truncates it after the last valid
// entry. A missing file is an empty journal.
func Recover(path string) (*RecoveryResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{}, nil
		}
		return nil, err
	}
	result := &RecoveryResult{FileSizeBefore: info.Size(), FileSizeAfter: info.Size()}

	r, err := NewReader(ReaderConfig{FilePath: path})
	if err != nil {
		return nil, err
	}
	var readErr error
	for {
		if _, readErr = r.ReadNext(); readErr != nil {
			break
		}
		result.EntriesValidated++
	}
	valid := r.Offset()
	r.Close()

	if readErr == io.EOF && valid == info.Size() {
		return result, nil
	}
	if readErr != ErrCorruption && readErr != io.EOF {
		return nil, readErr
	}

	if err := os.Truncate(path, valid); err != nil {
		return nil, err
	}
	result.FileSizeAfter = valid
	result.BytesTruncated = info.Size() - valid
	return result, nil
}
