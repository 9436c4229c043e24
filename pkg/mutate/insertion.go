package mutate

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// InsertionStrategy grows VariableSize records by interleaving random bytes
// into their payload. Target records are chosen with the same offset walk as
// RandomByteStrategy; each record is targeted at most once per Apply.
type InsertionStrategy struct {
	RandomByteStrategy
	// MaxBytesToInsert bounds the bytes added per record. Zero means up to
	// the record's current payload length.
	MaxBytesToInsert int
}

// NewInsertionStrategy validates the walk and insertion parameters.
func NewInsertionStrategy(frequency, variance, maxBytesToInsert int) (*InsertionStrategy, error) {
	if err := validateWalk(frequency, variance); err != nil {
		return nil, err
	}
	if maxBytesToInsert < 0 {
		return nil, fmt.Errorf("max bytes to insert must not be negative, got %d", maxBytesToInsert)
	}
	return &InsertionStrategy{
		RandomByteStrategy: RandomByteStrategy{Frequency: frequency, Variance: variance},
		MaxBytesToInsert:   maxBytesToInsert,
	}, nil
}

func (s *InsertionStrategy) Name() string { return NameInsertion }

// Apply inserts bytes into every VariableSize record hit by the walk and
// rewrites its size field to match the new payload. Fixed records are
// skipped.
func (s *InsertionStrategy) Apply(records []*codec.Record, src Source, tr Tracer) {
	if len(records) == 0 {
		return
	}
	l := newLayout(records)
	seen := make(map[int]bool)
	var targets []int
	l.walk(src, s.Frequency, s.Variance, func(offset int) {
		i, _ := l.locate(offset)
		if seen[i] || records[i].Kind != codec.KindVariable {
			return
		}
		seen[i] = true
		targets = append(targets, i)
	})

	for _, i := range targets {
		s.insert(records[i], i, src, tr)
	}
}

func (s *InsertionStrategy) insert(r *codec.Record, index int, src Source, tr Tracer) {
	limit := s.MaxBytesToInsert
	if limit == 0 {
		limit = len(r.Data)
	}
	if limit == 0 {
		tr.Tracef("record %d (%s): empty payload, nothing to insert", index, r.Type)
		return
	}
	k := 1 + src.IntN(limit)

	out := interleave(r.Data, k, src)
	size, err := safecast.Conv[uint32](len(out) + 4)
	if err != nil {
		tr.Tracef("record %d (%s): grown payload does not fit a size field", index, r.Type)
		return
	}
	tr.Tracef("record %d (%s): inserted %d bytes, size %d -> %d", index, r.Type, k, r.DeclaredSize, size)
	r.Data = out
	r.DeclaredSize = size
}

// interleave returns data with k random bytes mixed in. At each output
// position a byte is inserted with probability remaining-insertions over
// remaining-output-length, so insertions spread across the whole payload and
// exactly k are made.
func interleave(data []byte, k int, src Source) []byte {
	total := len(data) + k
	out := make([]byte, 0, total)
	remaining := k
	j := 0
	for pos := 0; pos < total; pos++ {
		if remaining > 0 && src.IntN(total-pos) < remaining {
			out = append(out, randomByte(src))
			remaining--
			continue
		}
		out = append(out, data[j])
		j++
	}
	return out
}
