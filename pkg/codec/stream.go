package codec

import (
	"bufio"
	"bytes"
	"io"
)

// Decoder provides sequential access to the records of a stream.
type Decoder struct {
	reader *countingReader
	offset int64
	index  int
	record *Record
	err    error
}

// NewDecoder creates a decoder reading from rd.
func NewDecoder(rd io.Reader) *Decoder {
	if _, ok := rd.(io.ByteReader); !ok {
		rd = bufio.NewReader(rd)
	}
	return &Decoder{reader: &countingReader{r: rd}}
}

// ReadNext reads the next record. It returns io.EOF on a clean end of input
// and a *DecodeError otherwise. The partially read record, if any, is
// returned alongside a decode error.
func (d *Decoder) ReadNext() (*Record, error) {
	start := d.reader.n
	r, err := ReadRecord(d.reader)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		de := &DecodeError{Offset: start, Index: d.index, Err: err}
		if r != nil {
			de.Type = r.Type
		}
		return r, de
	}
	d.offset = d.reader.n
	d.index++
	return r, nil
}

// Offset returns the stream offset just past the last decoded record.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Next advances to the next record, reporting whether one was decoded.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}
	d.record, d.err = d.ReadNext()
	return d.err == nil
}

// Record returns the record decoded by the last successful Next.
func (d *Decoder) Record() *Record {
	return d.record
}

// Err returns the error that stopped iteration, or nil on a clean end.
func (d *Decoder) Err() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

// DecodeStream decodes every record in data. A clean end of input between
// records is success. On failure it returns the records decoded before the
// failing one together with a *DecodeError.
func DecodeStream(data []byte) ([]*Record, error) {
	d := NewDecoder(bytes.NewReader(data))
	var records []*Record
	for d.Next() {
		records = append(records, d.Record())
	}
	return records, d.Err()
}

// EncodeStream concatenates the encodings of records in order.
func EncodeStream(records []*Record) []byte {
	size := 0
	for _, r := range records {
		size += r.Size()
	}
	buf := make([]byte, 0, size)
	for _, r := range records {
		buf = r.AppendTo(buf)
	}
	return buf
}

// StreamSize is the encoded length of records.
func StreamSize(records []*Record) int {
	n := 0
	for _, r := range records {
		n += r.Size()
	}
	return n
}

// CloneStream deep-copies a record sequence.
func CloneStream(records []*Record) []*Record {
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
