// Package campaign drives fuzzing campaigns: each iteration generates a
// baseline, decodes it, mutates the records, re-encodes them, loads the
// result and triages the outcome, keeping repro artifacts for every
// unexpected failure.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
	"github.com/ssargent/bmlfuzz/pkg/generator"
	"github.com/ssargent/bmlfuzz/pkg/loader"
	"github.com/ssargent/bmlfuzz/pkg/mutate"
)

// Options configure a Campaign.
type Options struct {
	Name          string
	WorkDir       string
	Seed          uint64
	MaxIterations int // negative runs until the context is canceled
	Generator     generator.Generator
	Loader        loader.Loader
	Strategies    mutate.Chain
	AllowList     AllowList
	// ContainerMode treats baselines as containers and mutates only the
	// stream part named ContainerPart, or the first .baml part when empty.
	ContainerMode bool
	ContainerPart string
	// Lenient keeps the records decoded before a baseline decode failure
	// instead of treating the baseline as a setup error.
	Lenient   bool
	Observers []Observer
	Logger    logrus.FieldLogger
}

// Campaign is a bounded, seeded sequence of iterations sharing one random
// source and one strategy chain. A Campaign is not safe for concurrent use.
type Campaign struct {
	opts       Options
	rng        *rand.Rand
	log        logrus.FieldLogger
	stats      Stats
	failureSeq int
}

// NewSource returns the seeded random source a campaign draws from.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
}

// New validates opts and creates a campaign.
func New(opts Options) (*Campaign, error) {
	if opts.WorkDir == "" {
		return nil, errors.New("campaign work dir is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("campaign generator is required")
	}
	if opts.Loader == nil {
		return nil, errors.New("campaign loader is required")
	}
	if opts.AllowList == nil {
		allow, err := NewAllowList(nil)
		if err != nil {
			return nil, err
		}
		opts.AllowList = allow
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(opts.WorkDir)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Campaign{
		opts: opts,
		rng:  NewSource(opts.Seed),
		log:  logger.WithFields(logrus.Fields{"campaign": opts.Name, "seed": opts.Seed}),
	}, nil
}

// Info describes the campaign.
func (c *Campaign) Info() Info {
	return Info{Name: c.opts.Name, Seed: c.opts.Seed, WorkDir: c.opts.WorkDir}
}

// Stats returns a copy of the counters.
func (c *Campaign) Stats() Stats {
	return c.stats
}

// Run executes iterations until MaxIterations have been generated or ctx is
// canceled. A failing iteration never stops the campaign.
func (c *Campaign) Run(ctx context.Context) (Stats, error) {
	if err := c.start(); err != nil {
		return c.stats, err
	}

	for c.opts.MaxIterations < 0 || c.stats.Generated < c.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			c.log.WithField("generated", c.stats.Generated).Info("Campaign canceled")
			return c.stats, err
		}
		res, err := c.iterate(ctx, c.stats.Generated+1, true)
		if err != nil {
			return c.stats, err
		}
		c.record(res)
	}

	c.log.WithFields(logrus.Fields{
		"generated":  c.stats.Generated,
		"passed":     c.stats.Passed,
		"expected":   c.stats.Expected,
		"unexpected": c.stats.Unexpected,
		"setup":      c.stats.Setup,
	}).Info("Campaign finished")
	return c.stats, nil
}

// Replay re-runs the campaign's random draws up to iteration n and fully
// executes only that iteration, leaving its artifacts in the working
// directory. Earlier iterations are generated and mutated but not loaded.
func (c *Campaign) Replay(ctx context.Context, n int) (*IterationResult, error) {
	if n < 1 {
		return nil, fmt.Errorf("replay iteration must be at least 1, got %d", n)
	}
	if err := c.start(); err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := c.iterate(ctx, i, false); err != nil {
			return nil, err
		}
	}
	res, err := c.iterate(ctx, n, true)
	if err != nil {
		return nil, err
	}
	c.record(res)
	return res, nil
}

func (c *Campaign) start() error {
	if err := os.MkdirAll(c.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	c.cleanStale()
	c.log.WithFields(logrus.Fields{
		"work_dir":       c.opts.WorkDir,
		"max_iterations": c.opts.MaxIterations,
		"strategies":     strings.Join(c.opts.Strategies.Names(), ","),
	}).Info("Starting campaign")
	c.appendGlobal(fmt.Sprintf("[%s] campaign %s starting with seed=%d strategies=%s\n",
		time.Now().Format(time.RFC3339), c.opts.Name, c.opts.Seed, strings.Join(c.opts.Strategies.Names(), ",")))
	return nil
}

func (c *Campaign) record(res *IterationResult) {
	c.stats.count(res.Outcome)
	entry := c.log.WithFields(logrus.Fields{"iteration": res.Iteration, "outcome": res.Outcome})
	switch res.Outcome {
	case OutcomeUnexpected:
		entry.WithError(res.Err).WithField("failure_dir", res.FailureDir).Error("Unexpected failure")
	case OutcomeSetup:
		entry.WithError(res.Err).Warn("Setup failure")
	case OutcomeExpected:
		entry.WithField("signature", res.Err.Signature).Debug("Expected rejection")
	default:
		entry.Debug("Iteration passed")
	}
	info := c.Info()
	for _, o := range c.opts.Observers {
		o.Observe(info, res)
	}
}

// iterate runs Generate, Decode, Mutate and Encode, then, when load is
// set, Load, Classify and Persist. Errors returned are cancellations;
// iteration failures are reported in the result.
func (c *Campaign) iterate(ctx context.Context, n int, load bool) (*IterationResult, error) {
	c.stats.Generated++
	res := &IterationResult{Iteration: n, Time: time.Now()}
	trace := NewActionLog()
	trace.Section("Iteration %d (campaign %s, seed %d)", n, c.opts.Name, c.opts.Seed)

	setup := func(err error) (*IterationResult, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.Outcome = OutcomeSetup
		res.Err = &ClassifiedError{Class: ClassSetup, Causes: chain(err)}
		return res, nil
	}

	baseline, err := c.opts.Generator.CreateBaseline(ctx, c.opts.WorkDir)
	if err != nil {
		return setup(err)
	}
	res.Baseline = baseline
	raw, err := os.ReadFile(baseline)
	if err != nil {
		return setup(&generator.SetupError{Generator: "baseline", Err: err})
	}
	trace.Tracef("baseline %s (%d bytes)", baseline, len(raw))

	doc, err := c.unpack(raw)
	if err != nil {
		return setup(err)
	}

	records, err := codec.DecodeStream(doc.stream)
	if err != nil {
		if !c.opts.Lenient {
			return setup(&generator.SetupError{Generator: "baseline", Err: err})
		}
		trace.Tracef("baseline decode stopped after %d records: %v", len(records), err)
	}
	trace.Tracef("decoded %d records", len(records))

	c.opts.Strategies.Apply(records, c.rng, trace, func(s mutate.Strategy) {
		trace.Section("Strategy %s", s.Name())
	})
	res.Strategies = c.opts.Strategies.Names()

	mutated, err := doc.repack(codec.EncodeStream(records))
	if err != nil {
		return setup(err)
	}

	a := newArtifacts(c.opts.WorkDir, baseline)
	res.Mutated = a.mutated
	if !load {
		return res, nil
	}

	trace.Section("Load %s (%d bytes)", filepath.Base(a.mutated), len(mutated))
	for _, w := range []struct {
		path string
		data []byte
	}{{a.mutated, mutated}, {a.snapshot, mutated}, {a.actionLog, []byte(trace.String())}} {
		if err := writeFile(w.path, w.data); err != nil {
			return setup(fmt.Errorf("failed to write %s: %w", w.path, err))
		}
	}

	start := time.Now()
	loadErr := safeLoad(ctx, c.opts.Loader, mutated)
	res.Loaded = true
	res.LoadDuration = time.Since(start)
	if loadErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res.Err = Classify(loadErr, c.opts.AllowList)
	if res.Err == nil {
		res.Outcome = OutcomePassed
		return res, nil
	}
	res.Outcome = outcomeOf(res.Err.Class)
	if res.Outcome == OutcomeUnexpected {
		c.persist(a, res)
	}
	return res, nil
}

func safeLoad(ctx context.Context, l loader.Loader, data []byte) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return l.Load(ctx, data)
}

// unpacked is a baseline split into the stream under mutation and the
// means to put it back.
type unpacked struct {
	stream []byte
	repack func(stream []byte) ([]byte, error)
}

func (c *Campaign) unpack(raw []byte) (*unpacked, error) {
	if !c.opts.ContainerMode {
		return &unpacked{stream: raw, repack: func(b []byte) ([]byte, error) { return b, nil }}, nil
	}

	ct, err := container.Open(raw)
	if err != nil {
		return nil, &generator.SetupError{Generator: "baseline", Err: err}
	}
	part := c.opts.ContainerPart
	if part == "" {
		parts := ct.Find(func(name string, _ []byte) bool {
			return strings.HasSuffix(strings.ToLower(name), loader.DefaultPartSuffix)
		})
		if len(parts) == 0 {
			return nil, &generator.SetupError{Generator: "baseline", Err: errors.New("container has no stream part")}
		}
		part = parts[0]
	}
	stream, err := ct.Part(part)
	if err != nil {
		return nil, &generator.SetupError{Generator: "baseline", Err: err}
	}
	return &unpacked{
		stream: stream,
		repack: func(b []byte) ([]byte, error) {
			if err := ct.Replace(part, b); err != nil {
				return nil, err
			}
			return ct.Bytes()
		},
	}, nil
}
