package mutate

import (
	"sort"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// layout maps byte offsets of the concatenated encoding back to records.
// It is computed from each record's RawDataSize at the time of construction
// and is not resynchronized when records change size.
type layout struct {
	starts []int
	total  int
}

func newLayout(records []*codec.Record) *layout {
	l := &layout{starts: make([]int, len(records))}
	for i, r := range records {
		l.starts[i] = l.total
		l.total += 2 + r.RawDataSize()
	}
	return l
}

// locate returns the record owning offset and the offset relative to the
// start of that record.
func (l *layout) locate(offset int) (int, int) {
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	return i, offset - l.starts[i]
}

// walk calls fn for each corruption point. Successive points are spaced by a
// uniform draw from [frequency-variance, frequency+variance], at least 1.
func (l *layout) walk(src Source, frequency, variance int, fn func(offset int)) {
	offset := 0
	for {
		step := uniform(src, frequency-variance, frequency+variance)
		if step < 1 {
			step = 1
		}
		offset += step
		if offset >= l.total {
			return
		}
		fn(offset)
	}
}
