package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
)

const (
	tagSize  = 2
	sizeSize = 4
)

// Record is one tagged unit of the binary markup stream.
type Record struct {
	Type RecordType // Tag as read from or written to the stream
	Kind Kind       // Size class, fixed at construction
	// DeclaredSize is the size field of a VariableSize record. It may
	// disagree with len(Data) once mutated. For fixed records it mirrors the
	// payload length and is never serialized.
	DeclaredSize uint32
	Data         []byte // Payload bytes
}

// NewRecord creates a record of type t around payload. The size class comes
// from the static size table; a fixed record must be given a payload of the
// table's length.
func NewRecord(t RecordType, payload []byte) (*Record, error) {
	kind, n := ClassOf(t)
	if kind == KindVariable {
		return NewVariableRecord(t, payload)
	}
	if len(payload) != n {
		return nil, fmt.Errorf("%s expects a %d byte payload, got %d: %w", t, n, len(payload), ErrInvalidRecordSize)
	}
	return &Record{Type: t, Kind: kind, DeclaredSize: uint32(n), Data: normalize(payload)}, nil
}

// NewVariableRecord creates a VariableSize record regardless of what the size
// table says about t.
func NewVariableRecord(t RecordType, payload []byte) (*Record, error) {
	size, err := safecast.Conv[uint32](len(payload) + sizeSize)
	if err != nil {
		return nil, fmt.Errorf("payload too large for %s: %w", t, err)
	}
	return &Record{Type: t, Kind: KindVariable, DeclaredSize: size, Data: normalize(payload)}, nil
}

// normalize keeps empty payloads nil so constructed and decoded records
// compare equal.
func normalize(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	return payload
}

// MustRecord is NewRecord for payloads known to be valid. It panics on error.
func MustRecord(t RecordType, payload []byte) *Record {
	r, err := NewRecord(t, payload)
	if err != nil {
		panic(err)
	}
	return r
}

// NewConnectionID creates a ConnectionId record holding id.
func NewConnectionID(id int32) *Record {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, uint32(id))
	return &Record{Type: TypeConnectionID, Kind: KindConnectionID, DeclaredSize: 4, Data: data}
}

// RawDataSize is the number of bytes following the tag: the size field plus
// payload for VariableSize records, the payload alone otherwise.
func (r *Record) RawDataSize() int {
	if r.Kind == KindVariable {
		return sizeSize + len(r.Data)
	}
	return len(r.Data)
}

// Size returns the total size of the record when encoded.
func (r *Record) Size() int {
	return tagSize + r.RawDataSize()
}

// ConsistentSize reports whether the declared size matches the payload.
func (r *Record) ConsistentSize() bool {
	if r.Kind != KindVariable {
		return true
	}
	return int64(r.DeclaredSize) == int64(sizeSize+len(r.Data))
}

// ConnectionID returns the identifier held by a ConnectionId record.
func (r *Record) ConnectionID() (int32, bool) {
	if r.Kind != KindConnectionID || len(r.Data) < 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(r.Data)), true
}

// SetConnectionID overwrites the identifier of a ConnectionId record.
func (r *Record) SetConnectionID(id int32) {
	if len(r.Data) < 4 {
		r.Data = append(r.Data, make([]byte, 4-len(r.Data))...)
	}
	binary.LittleEndian.PutUint32(r.Data, uint32(id))
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}

// AppendTo appends the encoding of r to buf. The current field values are
// written as they are, even when inconsistent.
func (r *Record) AppendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(r.Type))
	if r.Kind == KindVariable {
		buf = binary.LittleEndian.AppendUint32(buf, r.DeclaredSize)
	}
	return append(buf, r.Data...)
}

// Encode serializes r into a new buffer.
func (r *Record) Encode() []byte {
	return r.AppendTo(make([]byte, 0, r.Size()))
}

func (r *Record) String() string {
	if id, ok := r.ConnectionID(); ok {
		return fmt.Sprintf("%s(id=%d)", r.Type, id)
	}
	if r.Kind == KindVariable {
		return fmt.Sprintf("%s(size=%d, len=%d)", r.Type, r.DeclaredSize, len(r.Data))
	}
	return fmt.Sprintf("%s(len=%d)", r.Type, len(r.Data))
}

// ReadRecord consumes exactly one record from rd. It returns io.EOF when rd
// is exhausted before the first tag byte, and an error wrapping
// ErrTruncatedStream when it ends inside a record.
func ReadRecord(rd io.Reader) (*Record, error) {
	var tag [tagSize]byte
	if _, err := io.ReadFull(rd, tag[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, truncated(err)
	}

	t := RecordType(binary.LittleEndian.Uint16(tag[:]))
	kind, n := ClassOf(t)
	r := &Record{Type: t, Kind: kind}

	if kind != KindVariable {
		r.DeclaredSize = uint32(n)
		if n == 0 {
			return r, nil
		}
		r.Data = make([]byte, n)
		if _, err := io.ReadFull(rd, r.Data); err != nil {
			return r, truncated(err)
		}
		return r, nil
	}

	var size [sizeSize]byte
	if _, err := io.ReadFull(rd, size[:]); err != nil {
		return r, truncated(err)
	}
	r.DeclaredSize = binary.LittleEndian.Uint32(size[:])
	if r.DeclaredSize < sizeSize {
		return r, fmt.Errorf("size field %d below minimum %d: %w", r.DeclaredSize, sizeSize, ErrInvalidRecordSize)
	}

	// Read through a limit so a corrupted size cannot force a huge allocation
	// before the stream runs dry.
	want := int64(r.DeclaredSize) - sizeSize
	data, err := io.ReadAll(io.LimitReader(rd, want))
	if err != nil {
		return r, err
	}
	r.Data = normalize(data)
	if int64(len(data)) < want {
		return r, fmt.Errorf("payload has %d of %d bytes: %w", len(data), want, ErrTruncatedStream)
	}
	return r, nil
}

func truncated(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ErrTruncatedStream
	}
	return err
}
