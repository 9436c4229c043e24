package journal

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
)

// NewEntry converts an iteration result.
func NewEntry(c campaign.Info, r *campaign.IterationResult) *Entry {
	e := &Entry{
		Campaign:   c.Name,
		Seed:       c.Seed,
		Iteration:  r.Iteration,
		Outcome:    r.Outcome.String(),
		Strategies: r.Strategies,
		FailureDir: r.FailureDir,
		Load:       r.LoadDuration,
		Time:       r.Time,
	}
	if r.Err != nil {
		e.Signature = r.Err.Signature
		e.Error = r.Err.Error()
	}
	return e
}

// Recorder appends every iteration of a campaign to a journal. It
// implements campaign.Observer.
type Recorder struct {
	Writer *Writer
	Logger logrus.FieldLogger
}

// Observe implements campaign.Observer.
func (r *Recorder) Observe(c campaign.Info, res *campaign.IterationResult) {
	if _, err := r.Writer.Append(NewEntry(c, res)); err != nil && r.Logger != nil {
		r.Logger.WithError(err).WithField("iteration", res.Iteration).Warn("Failed to append journal entry")
	}
}
