package mutate

import (
	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// RandomByteStrategy overwrites single bytes at points spread across the
// serialized document. Points are chosen by byte offset rather than by
// record, so corruption density stays even regardless of record sizes.
type RandomByteStrategy struct {
	Frequency int // Mean distance between corruption points
	Variance  int // Maximum deviation from Frequency
}

// NewRandomByteStrategy validates the walk parameters.
func NewRandomByteStrategy(frequency, variance int) (*RandomByteStrategy, error) {
	if err := validateWalk(frequency, variance); err != nil {
		return nil, err
	}
	return &RandomByteStrategy{Frequency: frequency, Variance: variance}, nil
}

func (s *RandomByteStrategy) Name() string { return NameRandomByte }

// Apply corrupts one byte per corruption point. Record count never changes.
func (s *RandomByteStrategy) Apply(records []*codec.Record, src Source, tr Tracer) {
	if len(records) == 0 {
		return
	}
	l := newLayout(records)
	l.walk(src, s.Frequency, s.Variance, func(offset int) {
		i, rel := l.locate(offset)
		corruptByte(records[i], i, offset, rel, src, tr)
	})
}

func corruptByte(r *codec.Record, index, offset, rel int, src Source, tr Tracer) {
	v := randomByte(src)

	if rel < 2 {
		tag := uint16(r.Type)
		shift := uint(rel * 8)
		old := byte(tag >> shift)
		tag = tag&^(0xFF<<shift) | uint16(v)<<shift
		tr.Tracef("offset %d record %d (%s): type byte %d %#02x -> %#02x", offset, index, r.Type, rel, old, v)
		r.Type = codec.RecordType(tag)
		return
	}

	rel -= 2
	if r.Kind == codec.KindVariable {
		if rel < 4 {
			shift := uint(rel * 8)
			old := byte(r.DeclaredSize >> shift)
			r.DeclaredSize = r.DeclaredSize&^(0xFF<<shift) | uint32(v)<<shift
			tr.Tracef("offset %d record %d (%s): size byte %d %#02x -> %#02x", offset, index, r.Type, rel, old, v)
			return
		}
		rel -= 4
	}
	tr.Tracef("offset %d record %d (%s): data byte %d %#02x -> %#02x", offset, index, r.Type, rel, r.Data[rel], v)
	r.Data[rel] = v
}
