/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [campaign-file]",
	Short: "Write a campaign file with default settings",
	Long: `Write a campaign configuration with default settings that can be
edited and passed to "bmlfuzz run". The file is YAML and defaults to
campaign.yaml in the current directory.

Examples:
  bmlfuzz init
  bmlfuzz init --work-dir ./fuzz/ui --loader container ui.yaml
  bmlfuzz init --generator file --baseline ./testdata/page.baml page.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "campaign.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		opts := initOptions{}
		opts.Name, _ = cmd.Flags().GetString("name")
		opts.WorkDir, _ = cmd.Flags().GetString("work-dir")
		opts.Generator, _ = cmd.Flags().GetString("generator")
		opts.Baseline, _ = cmd.Flags().GetString("baseline")
		opts.Loader, _ = cmd.Flags().GetString("loader")
		opts.Strategies, _ = cmd.Flags().GetStringSlice("strategies")

		if config.ConfigExists(path) && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		cfg, err := initializeCampaign(path, opts)
		if err != nil {
			return err
		}

		cmd.Printf("✅ Campaign %q written to %s\n", cfg.Name, path)
		cmd.Printf("Work directory: %s\n", cfg.WorkDir)
		cmd.Printf("\nStart fuzzing with:\n")
		cmd.Printf("  bmlfuzz run %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("name", "", "Campaign name (default: file name without extension)")
	initCmd.Flags().String("work-dir", "", "Work directory for campaign artifacts")
	initCmd.Flags().String("generator", config.GeneratorSynthetic, "Baseline generator (synthetic, file, command)")
	initCmd.Flags().String("baseline", "", "Baseline file for the file generator")
	initCmd.Flags().String("loader", config.LoaderStream, "Loader (stream, container, command)")
	initCmd.Flags().StringSlice("strategies", nil, "Strategy names in application order")
	initCmd.Flags().Bool("force", false, "Overwrite an existing campaign file")
}

type initOptions struct {
	Name       string
	WorkDir    string
	Generator  string
	Baseline   string
	Loader     string
	Strategies []string
}

// initializeCampaign builds, validates and saves a default campaign
func initializeCampaign(path string, opts initOptions) (*config.CampaignConfig, error) {
	cfg := config.DefaultConfig()

	cfg.Name = opts.Name
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if opts.WorkDir != "" {
		cfg.WorkDir = opts.WorkDir
	} else {
		cfg.WorkDir = filepath.Join(filepath.Dir(path), "fuzz", cfg.Name)
	}
	if opts.Generator != "" {
		cfg.Generator.Kind = opts.Generator
	}
	cfg.Generator.Path = opts.Baseline
	if opts.Loader != "" {
		cfg.Loader.Kind = opts.Loader
	}
	if len(opts.Strategies) > 0 {
		cfg.Strategies = make([]config.StrategyConfig, len(opts.Strategies))
		for i, name := range opts.Strategies {
			cfg.Strategies[i] = config.StrategyConfig{Name: name}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}
	return cfg, nil
}
