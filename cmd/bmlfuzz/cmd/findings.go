/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/findings"
)

// findingsCmd represents the findings command
var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Inspect recorded unexpected failures",
	Long: `Inspect the findings database, where every unexpected failure is
recorded with its campaign, seed, iteration and failure directory.

Examples:
  bmlfuzz findings list --config campaign.yaml
  bmlfuzz findings list --db fuzz/ui/findings.db --since 24h --limit 10
  bmlfuzz findings show --db fuzz/ui/findings.db 2m5Yq9rS2JZ0Yd3bVwR1q7n8H0k`,
}

var findingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignName, _ := cmd.Flags().GetString("campaign")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		store, err := openFindings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		filter := findings.Filter{Campaign: campaignName, Limit: limit}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}
		found, err := store.List(filter)
		if err != nil {
			return err
		}
		return writeFindings(cmd.OutOrStdout(), found, format)
	},
}

var findingsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one finding with its error detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid finding id: %w", err)
		}
		store, err := openFindings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := store.Get(id)
		if err != nil {
			return err
		}
		printFinding(cmd.OutOrStdout(), f)
		return nil
	},
}

var findingsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete findings that have been triaged",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openFindings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, arg := range args {
			id, err := ksuid.Parse(arg)
			if err != nil {
				return fmt.Errorf("invalid finding id %q: %w", arg, err)
			}
			if err := store.Delete(id); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findingsCmd)
	findingsCmd.AddCommand(findingsListCmd, findingsShowCmd, findingsDeleteCmd)

	findingsCmd.PersistentFlags().String("db", "", "Findings database path")
	findingsCmd.PersistentFlags().String("config", "", "Campaign file whose findings database to open")

	findingsListCmd.Flags().String("campaign", "", "Only findings of this campaign")
	findingsListCmd.Flags().Duration("since", 0, "Only findings newer than this")
	findingsListCmd.Flags().Int("limit", 0, "Maximum number of findings (0 = all)")
	findingsListCmd.Flags().String("format", "table", "Output format (table, json)")
}

// findingsPath resolves the database from --db or --config
func findingsPath(cmd *cobra.Command) (string, error) {
	db, _ := cmd.Flags().GetString("db")
	if db != "" {
		return db, nil
	}
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return "", fmt.Errorf("pass --db or --config")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return "", err
	}
	return cfg.FindingsPath(), nil
}

func openFindings(cmd *cobra.Command) (*findings.Store, error) {
	path, err := findingsPath(cmd)
	if err != nil {
		return nil, err
	}
	return findings.Open(path)
}

func writeFindings(w io.Writer, found []*findings.Finding, format string) error {
	switch format {
	case "json":
		type jsonFinding struct {
			ID string `json:"id"`
			*findings.Finding
		}
		out := make([]jsonFinding, len(found))
		for i, f := range found {
			out[i] = jsonFinding{ID: f.ID.String(), Finding: f}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if len(found) == 0 {
		fmt.Fprintln(w, "No findings")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAMPAIGN\tSEED\tITERATION\tTIME\tERROR")
	for _, f := range found {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			f.ID, f.Campaign, f.Seed, f.Iteration, f.Time.Format(time.RFC3339), firstLine(f.Error))
	}
	return tw.Flush()
}

func printFinding(w io.Writer, f *findings.Finding) {
	fmt.Fprintf(w, "ID:          %s\n", f.ID)
	fmt.Fprintf(w, "Campaign:    %s\n", f.Campaign)
	fmt.Fprintf(w, "Seed:        %d\n", f.Seed)
	fmt.Fprintf(w, "Iteration:   %d\n", f.Iteration)
	fmt.Fprintf(w, "Strategies:  %s\n", strings.Join(f.Strategies, ", "))
	fmt.Fprintf(w, "Failure dir: %s\n", f.FailureDir)
	fmt.Fprintf(w, "Time:        %s\n", f.Time.Format(time.RFC3339))
	fmt.Fprintf(w, "Error:       %s\n", unexpectedColor.Sprint(f.Error))
	if f.Detail != "" {
		fmt.Fprintf(w, "\n%s", f.Detail)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
