package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
)

// CampaignStatus is the live view of one campaign.
type CampaignStatus struct {
	Name          string    `json:"name"`
	Seed          uint64    `json:"seed"`
	WorkDir       string    `json:"work_dir"`
	Generated     int       `json:"generated"`
	Passed        int       `json:"passed"`
	Expected      int       `json:"expected"`
	Unexpected    int       `json:"unexpected"`
	Setup         int       `json:"setup"`
	LastIteration int       `json:"last_iteration"`
	LastOutcome   string    `json:"last_outcome"`
	LastFailure   string    `json:"last_failure,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status tracks running campaigns. It implements campaign.Observer and is
// safe for concurrent use by several campaigns.
type Status struct {
	mu        sync.RWMutex
	campaigns map[string]*CampaignStatus
	now       func() time.Time
}

// NewStatus creates an empty tracker.
func NewStatus() *Status {
	return &Status{campaigns: make(map[string]*CampaignStatus), now: time.Now}
}

// Observe implements campaign.Observer.
func (s *Status) Observe(c campaign.Info, r *campaign.IterationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.campaigns[c.Name]
	if !ok {
		st = &CampaignStatus{Name: c.Name}
		s.campaigns[c.Name] = st
	}
	st.Seed = c.Seed
	st.WorkDir = c.WorkDir
	st.Generated++
	switch r.Outcome {
	case campaign.OutcomePassed:
		st.Passed++
	case campaign.OutcomeExpected:
		st.Expected++
	case campaign.OutcomeUnexpected:
		st.Unexpected++
		st.LastFailure = r.FailureDir
	case campaign.OutcomeSetup:
		st.Setup++
	}
	st.LastIteration = r.Iteration
	st.LastOutcome = r.Outcome.String()
	st.UpdatedAt = s.now()
}

// Campaigns returns a snapshot sorted by name.
func (s *Status) Campaigns() []CampaignStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CampaignStatus, 0, len(s.campaigns))
	for _, st := range s.campaigns {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
