/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/di"
)

var (
	diContainer *di.Container
	logger      = logrus.New()
)

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	diContainer = c
}

func getContainer() *di.Container {
	if diContainer == nil {
		diContainer = di.NewContainer()
	}
	return diContainer
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bmlfuzz",
	Short: "bmlfuzz - mutation fuzzer for binary markup documents",
	Long: `bmlfuzz generates baseline binary markup documents, mutates them with
seeded strategies and feeds the result to a loader. Unexpected loader
failures are saved with everything needed to reproduce them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		return configureLogger(logger, level, format)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

func configureLogger(l *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// applyConfigLogging lets a campaign file set logging unless the flags did.
func applyConfigLogging(cmd *cobra.Command, cfg *config.CampaignConfig) error {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if !cmd.Flags().Changed("log-level") && cfg.Logging.Level != "" {
		level = cfg.Logging.Level
	}
	if !cmd.Flags().Changed("log-format") && cfg.Logging.Format != "" {
		format = cfg.Logging.Format
	}
	return configureLogger(logger, level, format)
}
