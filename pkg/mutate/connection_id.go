package mutate

import (
	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// ConnectionIDStrategy scrambles the bindings between ConnectionId records.
// With two or more records every new id is drawn from the document's own id
// pool, so each value stays plausible while the references it resolves to
// change.
type ConnectionIDStrategy struct {
	// AllowDuplicateIDs lets the same id be assigned to several records.
	AllowDuplicateIDs bool
}

// NewConnectionIDStrategy creates the strategy.
func NewConnectionIDStrategy(allowDuplicateIDs bool) *ConnectionIDStrategy {
	return &ConnectionIDStrategy{AllowDuplicateIDs: allowDuplicateIDs}
}

func (s *ConnectionIDStrategy) Name() string { return NameConnectionID }

// Apply reassigns ids. A single ConnectionId record gets a fresh random id.
// Otherwise records are visited in stream order and each draws a pool id
// different from its own. Without duplicates a drawn id leaves the pool;
// when only a record's own id is left for it, it trades with an earlier
// record so that no record keeps its original id whenever that is possible.
func (s *ConnectionIDStrategy) Apply(records []*codec.Record, src Source, tr Tracer) {
	var positions []int
	var original []int32
	for i, r := range records {
		if id, ok := r.ConnectionID(); ok {
			positions = append(positions, i)
			original = append(original, id)
		}
	}

	switch len(positions) {
	case 0:
		return
	case 1:
		old := original[0]
		id := old
		for id == old {
			id = int32(src.Uint32())
		}
		tr.Tracef("record %d: connection id %d -> %d", positions[0], old, id)
		records[positions[0]].SetConnectionID(id)
		return
	}

	var assigned []int32
	if s.AllowDuplicateIDs {
		assigned = s.drawWithDuplicates(original, src)
	} else {
		assigned = s.drawWithoutDuplicates(original, src)
	}

	for n, i := range positions {
		if assigned[n] != original[n] {
			tr.Tracef("record %d: connection id %d -> %d", i, original[n], assigned[n])
		} else {
			tr.Tracef("record %d: connection id %d kept, no other id available", i, original[n])
		}
		records[i].SetConnectionID(assigned[n])
	}
}

func (s *ConnectionIDStrategy) drawWithDuplicates(original []int32, src Source) []int32 {
	pool := distinct(original)
	out := make([]int32, len(original))
	for n, cur := range original {
		out[n] = cur
		if len(pool) < 2 {
			continue
		}
		for out[n] == cur {
			out[n] = pool[src.IntN(len(pool))]
		}
	}
	return out
}

func (s *ConnectionIDStrategy) drawWithoutDuplicates(original []int32, src Source) []int32 {
	pool := append([]int32(nil), original...)
	out := make([]int32, len(original))

	for n, cur := range original {
		var candidates []int
		for p, id := range pool {
			if id != cur {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) > 0 {
			p := candidates[src.IntN(len(candidates))]
			out[n] = pool[p]
			pool = append(pool[:p], pool[p+1:]...)
			continue
		}

		// Only this record's own id is left. Trade with an earlier record
		// whose original differs and whose assignment is not ours.
		out[n] = pool[0]
		pool = pool[1:]
		var partners []int
		for m := 0; m < n; m++ {
			if original[m] != out[n] && out[m] != cur {
				partners = append(partners, m)
			}
		}
		if len(partners) > 0 {
			m := partners[src.IntN(len(partners))]
			out[n], out[m] = out[m], out[n]
		}
	}
	return out
}

func distinct(ids []int32) []int32 {
	seen := make(map[int32]bool, len(ids))
	var out []int32
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
