package mutate

import (
	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// Chain applies strategies in order to the same record sequence, sharing one
// Source. Records are not resynchronized between strategies.
type Chain []Strategy

// Apply runs every strategy in order. before is called ahead of each
// strategy, which lets callers structure their trace output.
func (c Chain) Apply(records []*codec.Record, src Source, tr Tracer, before func(Strategy)) {
	for _, s := range c {
		if before != nil {
			before(s)
		}
		s.Apply(records, src, tr)
	}
}

// Names returns the strategy names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return names
}
