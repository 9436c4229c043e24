/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/journal"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [journal]...",
	Short: "Summarize campaign journals",
	Long: `Report reads campaign journals and prints per-campaign outcome counts,
failure signatures and failure directories. Journals are given directly
or found through --config.

Examples:
  bmlfuzz report fuzz/ui/journal.log
  bmlfuzz report --config ui.yaml --config container.yaml
  bmlfuzz report --format json fuzz/ui/journal.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configs, _ := cmd.Flags().GetStringSlice("config")
		format, _ := cmd.Flags().GetString("format")

		paths := append([]string(nil), args...)
		for _, path := range configs {
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			paths = append(paths, cfg.JournalPath())
		}
		if len(paths) == 0 {
			return fmt.Errorf("no journal given: pass a journal path or --config")
		}
		return writeReport(cmd.OutOrStdout(), paths, format)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSlice("config", nil, "Campaign file whose journal to read (repeatable)")
	reportCmd.Flags().String("format", "table", "Output format (table, json)")
}

func writeReport(w io.Writer, paths []string, format string) error {
	var entries []*journal.Entry
	seen := make(map[string]bool)
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		found, err := journal.ReadAll(path)
		if errors.Is(err, journal.ErrCorruption) {
			logger.WithError(err).WithField("journal", path).Warn("Journal has a corrupt tail, reporting entries before it")
			err = nil
		}
		if err != nil {
			return fmt.Errorf("failed to read journal %s: %w", path, err)
		}
		entries = append(entries, found...)
	}

	summaries := journal.Summarize(entries)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case "table", "":
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No iterations recorded")
			return nil
		}
		return printSummaries(w, summaries)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
