package mutate

import (
	"fmt"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// ShuffleStrategy swaps record positions without touching record bytes,
// breaking start/end pairing.
type ShuffleStrategy struct {
	SwapCount int
}

// NewShuffleStrategy creates a shuffle performing swapCount pairwise swaps.
func NewShuffleStrategy(swapCount int) (*ShuffleStrategy, error) {
	if swapCount < 0 {
		return nil, fmt.Errorf("swap count must not be negative, got %d", swapCount)
	}
	return &ShuffleStrategy{SwapCount: swapCount}, nil
}

func (s *ShuffleStrategy) Name() string { return NameShuffle }

// Apply performs SwapCount swaps of two distinct, uniformly chosen positions.
func (s *ShuffleStrategy) Apply(records []*codec.Record, src Source, tr Tracer) {
	n := len(records)
	if n < 2 {
		return
	}
	for i := 0; i < s.SwapCount; i++ {
		a := src.IntN(n)
		b := src.IntN(n - 1)
		if b >= a {
			b++
		}
		tr.Tracef("swap %d (%s) <-> %d (%s)", a, records[a].Type, b, records[b].Type)
		records[a], records[b] = records[b], records[a]
	}
}
