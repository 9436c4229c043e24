package campaign

import (
	"fmt"
	"time"
)

// Outcome is the result of one iteration.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeExpected
	OutcomeUnexpected
	OutcomeSetup
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeExpected:
		return "expected"
	case OutcomeUnexpected:
		return "unexpected"
	case OutcomeSetup:
		return "setup"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for o := OutcomePassed; o <= OutcomeSetup; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

func outcomeOf(c Class) Outcome {
	switch c {
	case ClassExpected:
		return OutcomeExpected
	case ClassSetup:
		return OutcomeSetup
	default:
		return OutcomeUnexpected
	}
}

// Info identifies the campaign an iteration belongs to.
type Info struct {
	Name    string
	Seed    uint64
	WorkDir string
}

// IterationResult describes a finished iteration.
type IterationResult struct {
	Iteration    int
	Outcome      Outcome
	Err          *ClassifiedError
	Strategies   []string
	Baseline     string
	Mutated      string
	FailureDir   string
	Loaded       bool
	LoadDuration time.Duration
	Time         time.Time
}

// Observer is notified after every iteration. Observers run on the
// campaign goroutine and must not retain r.
type Observer interface {
	Observe(c Info, r *IterationResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(c Info, r *IterationResult)

func (f ObserverFunc) Observe(c Info, r *IterationResult) {
	f(c, r)
}

// Stats are the campaign counters.
type Stats struct {
	Generated  int
	Passed     int
	Expected   int
	Unexpected int
	Setup      int
}

func (s *Stats) count(o Outcome) {
	switch o {
	case OutcomePassed:
		s.Passed++
	case OutcomeExpected:
		s.Expected++
	case OutcomeUnexpected:
		s.Unexpected++
	case OutcomeSetup:
		s.Setup++
	}
}
