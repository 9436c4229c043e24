package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// encodeEntry frames e. The entry's Time becomes the header timestamp.
func encodeEntry(e *Entry) ([]byte, error) {
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrTooLarge
	}
	size, err := safecast.Conv[uint32](len(payload))
	if err != nil {
		return nil, ErrTooLarge
	}
	ts, err := safecast.Conv[uint64](e.Time.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("journal timestamp before epoch: %w", err)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[4:8], size)
	binary.LittleEndian.PutUint64(buf[8:16], ts)
	copy(buf[headerSize:], payload)
	binary.LittleEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf, nil
}

// decodeEntry validates a framed entry (header and payload) and unpacks it.
func decodeEntry(header, payload []byte) (*Entry, error) {
	crc := binary.LittleEndian.Uint32(header[0:4])
	h := crc32.NewIEEE()
	h.Write(header[4:])
	h.Write(payload)
	if h.Sum32() != crc {
		return nil, ErrCorruption
	}

	var e Entry
	if err := msgpack.Unmarshal(payload, &e); err != nil {
		return nil, ErrCorruption
	}
	ts, err := safecast.Conv[int64](binary.LittleEndian.Uint64(header[8:16]))
	if err != nil {
		return nil, ErrCorruption
	}
	e.Time = time.Unix(0, ts)
	return &e, nil
}
