package journal

import (
	"sort"
	"time"
)

// Summary aggregates the journal entries of one campaign.
type Summary struct {
	Campaign    string
	Seeds       []uint64
	Iterations  int
	Outcomes    map[string]int
	Signatures  map[string]int
	FailureDirs []string
	TotalLoad   time.Duration
	First, Last time.Time
}

// Summarize groups entries by campaign, sorted by campaign name.
func Summarize(entries []*Entry) []*Summary {
	byName := make(map[string]*Summary)
	for _, e := range entries {
		s, ok := byName[e.Campaign]
		if !ok {
			s = &Summary{
				Campaign:   e.Campaign,
				Outcomes:   make(map[string]int),
				Signatures: make(map[string]int),
				First:      e.Time,
			}
			byName[e.Campaign] = s
		}
		if len(s.Seeds) == 0 || s.Seeds[len(s.Seeds)-1] != e.Seed {
			s.Seeds = append(s.Seeds, e.Seed)
		}
		s.Iterations++
		s.Outcomes[e.Outcome]++
		if e.Signature != "" {
			s.Signatures[e.Signature]++
		}
		if e.FailureDir != "" {
			s.FailureDirs = append(s.FailureDirs, e.FailureDir)
		}
		s.TotalLoad += e.Load
		if e.Time.Before(s.First) {
			s.First = e.Time
		}
		if e.Time.After(s.Last) {
			s.Last = e.Time
		}
	}

	out := make([]*Summary, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Campaign < out[j].Campaign })
	return out
}
