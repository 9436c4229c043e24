//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"errors"
	"testing"
)

// FuzzDecodeStream_RoundTrip checks that anything that decodes cleanly
// re-encodes to the same bytes.
func FuzzDecodeStream_RoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x03, 0x00, 0x01, 0x00, 0x04, 0x00, 0x02, 0x00})
	f.Add([]byte{0x10, 0x00, 0x09, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o'})
	f.Add([]byte{0x2d, 0x00, 0x0a, 0x00, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		records, err := DecodeStream(data)
		if err != nil {
			if !errors.Is(err, ErrTruncatedStream) && !errors.Is(err, ErrInvalidRecordSize) {
				t.Fatalf("unexpected decode error: %v", err)
			}
			prefix := EncodeStream(records)
			if !bytes.HasPrefix(data, prefix) {
				t.Fatalf("partial records do not re-encode to a prefix of the input")
			}
			return
		}

		if out := EncodeStream(records); !bytes.Equal(out, data) {
			t.Fatalf("round trip mismatch: in=%x out=%x", data, out)
		}
	})
}
