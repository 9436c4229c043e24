// Package container reads and writes compound files: zip archives holding
// named streams, one of which is typically a binary markup part.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrMalformedContainer means the archive structure itself is broken.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrCorruptCompressedData means a part failed to decompress or verify.
	ErrCorruptCompressedData = errors.New("corrupt compressed data")
	// ErrInvalidStorageCall means a part was requested that does not exist.
	ErrInvalidStorageCall = errors.New("invalid storage call")
)

// Error describes a failed container operation. It matches its Kind with
// errors.Is and unwraps to the underlying archive error.
type Error struct {
	Op   string
	Part string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := "container " + e.Op
	if e.Part != "" {
		msg += " " + e.Part
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Part is one named stream of a container.
type Part struct {
	Name string
	Data []byte
}

// Container is an in-memory compound file.
type Container struct {
	parts []Part
	index map[string]int
}

// New creates a container from parts, preserving their order.
func New(parts ...Part) *Container {
	c := &Container{index: make(map[string]int)}
	for _, p := range parts {
		c.put(p.Name, p.Data)
	}
	return c
}

// Magic is the signature every container starts with.
var Magic = []byte("PK\x03\x04")

// IsContainer reports whether data looks like a container.
func IsContainer(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}

// Open parses a serialized container and decompresses every part.
func Open(data []byte) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Op: "open", Kind: ErrMalformedContainer, Err: err}
	}

	c := New()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, &Error{Op: "open", Part: f.Name, Kind: classify(err), Err: err}
		}
		body, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, &Error{Op: "read", Part: f.Name, Kind: classify(err), Err: err}
		}
		c.put(f.Name, body)
	}
	return c, nil
}

func classify(err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.As(err, &corrupt),
		errors.Is(err, zip.ErrChecksum),
		errors.Is(err, io.ErrUnexpectedEOF):
		return ErrCorruptCompressedData
	default:
		return ErrMalformedContainer
	}
}

func (c *Container) put(name string, data []byte) {
	if i, ok := c.index[name]; ok {
		c.parts[i].Data = data
		return
	}
	c.index[name] = len(c.parts)
	c.parts = append(c.parts, Part{Name: name, Data: data})
}

// Names lists part names in container order.
func (c *Container) Names() []string {
	names := make([]string, len(c.parts))
	for i, p := range c.parts {
		names[i] = p.Name
	}
	return names
}

// Part returns the data of the named part.
func (c *Container) Part(name string) ([]byte, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, &Error{Op: "get", Part: name, Kind: ErrInvalidStorageCall}
	}
	return c.parts[i].Data, nil
}

// Replace overwrites an existing part.
func (c *Container) Replace(name string, data []byte) error {
	if _, ok := c.index[name]; !ok {
		return &Error{Op: "replace", Part: name, Kind: ErrInvalidStorageCall}
	}
	c.put(name, data)
	return nil
}

// Find returns the names of parts whose data satisfies match, sorted.
func (c *Container) Find(match func(name string, data []byte) bool) []string {
	var names []string
	for _, p := range c.parts {
		if match(p.Name, p.Data) {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Bytes serializes the container with every part deflated.
func (c *Container) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range c.parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("failed to add part %s: %w", p.Name, err)
		}
		if _, err := w.Write(p.Data); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", p.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish container: %w", err)
	}
	return buf.Bytes(), nil
}
