/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
	"github.com/ssargent/bmlfuzz/pkg/config"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Reproduce one iteration of a campaign",
	Long: `Replay re-runs a campaign's random draws with the same seed up to the
given iteration and loads only that iteration. Its mutated document,
snapshot and action log are left in the work directory, and an unexpected
failure gets a fresh failure directory.

The seed comes from --seed or from the campaign file. It is printed in the
log when a campaign starts.

Examples:
  bmlfuzz replay --config campaign.yaml --seed 1718034 --iteration 57`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		iteration, _ := cmd.Flags().GetInt("iteration")

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			cfg.Seed = &seed
		}
		if err := applyConfigLogging(cmd, cfg); err != nil {
			return err
		}

		res, err := replayIteration(cmd.Context(), cfg, iteration)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("config", "", "Campaign file (required)")
	replayCmd.Flags().Int("iteration", 0, "Iteration to reproduce (required)")
	replayCmd.Flags().Uint64("seed", 0, "Campaign seed (default from the campaign file)")
	if err := replayCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	if err := replayCmd.MarkFlagRequired("iteration"); err != nil {
		panic(err)
	}
}

// replayIteration rebuilds the campaign and reproduces iteration n
func replayIteration(ctx context.Context, cfg *config.CampaignConfig, n int) (*campaign.IterationResult, error) {
	if cfg.Seed == nil {
		return nil, errors.New("replay needs a seed: pass --seed or set seed in the campaign file")
	}
	c, err := getContainer().BuildCampaign(cfg, *cfg.Seed, logger)
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", cfg.Name, err)
	}
	return c.Replay(ctx, n)
}
