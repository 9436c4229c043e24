/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/findings"
	"github.com/ssargent/bmlfuzz/pkg/journal"
	"github.com/ssargent/bmlfuzz/pkg/monitor"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <campaign-file>...",
	Short: "Run one or more fuzzing campaigns",
	Long: `Run fuzzing campaigns described by configuration files. Several files
run concurrently, each with its own work directory and random source.

A campaign without a seed gets one derived from the clock; the seed is
logged so the campaign can be replayed.

Examples:
  bmlfuzz run campaign.yaml
  bmlfuzz run --iterations 1000 ui.yaml container.toml
  bmlfuzz run --monitor --port 9464 campaign.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions{Paths: args}
		if cmd.Flags().Changed("iterations") {
			iterations, _ := cmd.Flags().GetInt("iterations")
			opts.Iterations = &iterations
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			opts.Seed = &seed
		}
		opts.Monitor, _ = cmd.Flags().GetBool("monitor")
		if cmd.Flags().Changed("bind") {
			opts.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("port") {
			opts.Port, _ = cmd.Flags().GetInt("port")
		}

		configs, err := loadConfigs(opts)
		if err != nil {
			return err
		}
		if err := applyConfigLogging(cmd, configs[0]); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		results, err := runCampaigns(ctx, configs, opts)
		for _, r := range results {
			printStats(cmd.OutOrStdout(), r.Info, r.Stats)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("iterations", 0, "Override max_iterations for every campaign (negative runs until interrupted)")
	runCmd.Flags().Uint64("seed", 0, "Override the seed of every campaign")
	runCmd.Flags().Bool("monitor", false, "Serve metrics and campaign status while running")
	runCmd.Flags().String("bind", "", "Monitor bind address (default from the first campaign)")
	runCmd.Flags().Int("port", 0, "Monitor port (default from the first campaign)")
}

type runOptions struct {
	Paths      []string
	Iterations *int // nil keeps the configured value
	Seed       *uint64
	Monitor    bool
	Bind       string
	Port       int
}

type runResult struct {
	Info  campaign.Info
	Stats campaign.Stats
}

// loadConfigs reads every campaign file and resolves its seed. Campaigns
// must differ in name and in work directory.
func loadConfigs(opts runOptions) ([]*config.CampaignConfig, error) {
	configs := make([]*config.CampaignConfig, 0, len(opts.Paths))
	names := make(map[string]string)
	workDirs := make(map[string]string)
	for _, path := range opts.Paths {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if opts.Iterations != nil {
			cfg.MaxIterations = *opts.Iterations
		}
		if opts.Seed != nil {
			seed := *opts.Seed
			cfg.Seed = &seed
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := names[cfg.Name]; ok {
			return nil, fmt.Errorf("%s: campaign name %q already used by %s", path, cfg.Name, prev)
		}
		names[cfg.Name] = path
		workDir, err := filepath.Abs(cfg.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve work_dir: %w", path, err)
		}
		if prev, ok := workDirs[workDir]; ok {
			return nil, fmt.Errorf("%s: work_dir %s already used by %s", path, cfg.WorkDir, prev)
		}
		workDirs[workDir] = path
		cfg.ResolveSeed(time.Now())
		configs = append(configs, cfg)
	}
	return configs, nil
}

// resources holds the journals and findings stores shared by campaigns,
// keyed by path so campaigns pointing at the same file share one handle.
type resources struct {
	mu       sync.Mutex
	journals map[string]*journal.Writer
	stores   map[string]*findings.Store
}

func newResources() *resources {
	return &resources{
		journals: make(map[string]*journal.Writer),
		stores:   make(map[string]*findings.Store),
	}
}

func (r *resources) journal(path string) (*journal.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.journals[path]; ok {
		return w, nil
	}
	w, err := journal.NewWriter(journal.WriterConfig{FilePath: path, FsyncInterval: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if rec := w.Recovery(); rec.BytesTruncated > 0 {
		logger.WithFields(logrus.Fields{
			"journal":   path,
			"truncated": rec.BytesTruncated,
		}).Warn("Recovered journal from corruption")
	}
	r.journals[path] = w
	return w, nil
}

func (r *resources) store(path string) (*findings.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[path]; ok {
		return s, nil
	}
	s, err := findings.Open(path)
	if err != nil {
		return nil, err
	}
	r.stores[path] = s
	return s, nil
}

// List implements monitor.FindingLister across every open store
func (r *resources) List(filter findings.Filter) ([]*findings.Finding, error) {
	r.mu.Lock()
	stores := make([]*findings.Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()
	return listAll(stores, filter)
}

func (r *resources) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, w := range r.journals {
		if err := w.Close(); err != nil {
			logger.WithError(err).WithField("journal", path).Warn("Failed to close journal")
		}
	}
	for path, s := range r.stores {
		if err := s.Close(); err != nil {
			logger.WithError(err).WithField("findings_db", path).Warn("Failed to close findings db")
		}
	}
}

// listAll merges stores, oldest first, applying the limit after the merge
func listAll(stores []*findings.Store, filter findings.Filter) ([]*findings.Finding, error) {
	limit := filter.Limit
	filter.Limit = 0
	var all []*findings.Finding
	for _, s := range stores {
		found, err := s.List(filter)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// runCampaigns runs every campaign concurrently and returns their counters
// in configuration order.
func runCampaigns(ctx context.Context, configs []*config.CampaignConfig, opts runOptions) ([]runResult, error) {
	res := newResources()
	defer res.Close()

	metrics := monitor.NewMetrics()
	status := monitor.NewStatus()

	campaigns := make([]*campaign.Campaign, len(configs))
	for i, cfg := range configs {
		jw, err := res.journal(cfg.JournalPath())
		if err != nil {
			return nil, err
		}
		store, err := res.store(cfg.FindingsPath())
		if err != nil {
			return nil, err
		}
		log := logger.WithField("campaign", cfg.Name)
		c, err := getContainer().BuildCampaign(cfg, *cfg.Seed, logger,
			&journal.Recorder{Writer: jw, Logger: log},
			&findings.Recorder{Store: store, Logger: log},
			metrics,
			status,
		)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: %w", cfg.Name, err)
		}
		campaigns[i] = c
	}

	var serverErr chan error
	stopMonitor := func() {}
	if opts.Monitor {
		sc := monitor.ServerConfig{Bind: configs[0].Monitor.Bind, Port: configs[0].Monitor.Port}
		if opts.Bind != "" {
			sc.Bind = opts.Bind
		}
		if opts.Port != 0 {
			sc.Port = opts.Port
		}
		var monitorCtx context.Context
		monitorCtx, stopMonitor = context.WithCancel(ctx)
		serverErr = make(chan error, 1)
		server := monitor.NewServer(sc, metrics, status, res, logger)
		go func() { serverErr <- server.Start(monitorCtx) }()
	}

	results := make([]runResult, len(campaigns))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range campaigns {
		g.Go(func() error {
			stats, err := c.Run(gctx)
			results[i] = runResult{Info: c.Info(), Stats: stats}
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("campaign %s: %w", c.Info().Name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	stopMonitor()
	if serverErr != nil {
		if serr := <-serverErr; serr != nil && err == nil {
			err = fmt.Errorf("monitor: %w", serr)
		}
	}
	return results, err
}
