package mutate

import (
	"fmt"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// Source is the seeded random source shared by a campaign. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Uint32() uint32
}

// Tracer receives a line for every action a strategy takes.
type Tracer interface {
	Tracef(format string, args ...any)
}

// Strategy transforms a record sequence in place.
type Strategy interface {
	Name() string
	Apply(records []*codec.Record, src Source, tr Tracer)
}

// NopTracer discards all trace output.
type NopTracer struct{}

func (NopTracer) Tracef(string, ...any) {}

// uniform draws from the closed interval [lo, hi].
func uniform(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

func randomByte(src Source) byte {
	return byte(src.IntN(256))
}

func validateWalk(frequency, variance int) error {
	if frequency < 1 {
		return fmt.Errorf("frequency must be at least 1, got %d", frequency)
	}
	if variance < 0 || variance >= frequency {
		return fmt.Errorf("variance must be in [0, %d), got %d", frequency, variance)
	}
	return nil
}
