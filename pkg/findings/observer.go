package findings

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
)

// Recorder stores every unexpected failure of a campaign. It implements
// campaign.Observer.
type Recorder struct {
	Store  *Store
	Logger logrus.FieldLogger
}

// Observe implements campaign.Observer.
func (r *Recorder) Observe(c campaign.Info, res *campaign.IterationResult) {
	if res.Outcome != campaign.OutcomeUnexpected {
		return
	}
	f := &Finding{
		Campaign:   c.Name,
		Seed:       c.Seed,
		Iteration:  res.Iteration,
		Strategies: res.Strategies,
		FailureDir: res.FailureDir,
		Time:       res.Time,
	}
	if res.Err != nil {
		f.Error = res.Err.Error()
		f.Detail = res.Err.Detail()
	}
	id, err := r.Store.Create(f)
	if r.Logger == nil {
		return
	}
	if err != nil {
		r.Logger.WithError(err).WithField("iteration", res.Iteration).Warn("Failed to record finding")
		return
	}
	r.Logger.WithFields(logrus.Fields{"finding": id.String(), "iteration": res.Iteration}).Info("Recorded finding")
}
