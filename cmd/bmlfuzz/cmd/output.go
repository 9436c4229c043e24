package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
	"github.com/ssargent/bmlfuzz/pkg/journal"
)

var (
	passedColor     = color.New(color.FgGreen, color.Bold)
	expectedColor   = color.New(color.FgYellow)
	unexpectedColor = color.New(color.FgRed, color.Bold)
	setupColor      = color.New(color.FgMagenta)
)

func outcomeColor(outcome string) *color.Color {
	o, err := campaign.ParseOutcome(outcome)
	if err != nil {
		return color.New(color.Reset)
	}
	switch o {
	case campaign.OutcomePassed:
		return passedColor
	case campaign.OutcomeExpected:
		return expectedColor
	case campaign.OutcomeUnexpected:
		return unexpectedColor
	default:
		return setupColor
	}
}

// printStats writes the end-of-campaign counters
func printStats(w io.Writer, info campaign.Info, stats campaign.Stats) {
	fmt.Fprintf(w, "Campaign %s (seed=%d, work dir %s)\n", info.Name, info.Seed, info.WorkDir)
	fmt.Fprintf(w, "  generated:  %d\n", stats.Generated)
	fmt.Fprintf(w, "  passed:     %s\n", passedColor.Sprint(stats.Passed))
	fmt.Fprintf(w, "  expected:   %s\n", expectedColor.Sprint(stats.Expected))
	fmt.Fprintf(w, "  unexpected: %s\n", unexpectedColor.Sprint(stats.Unexpected))
	fmt.Fprintf(w, "  setup:      %s\n", setupColor.Sprint(stats.Setup))
}

// printResult writes a single iteration result
func printResult(w io.Writer, res *campaign.IterationResult) {
	outcome := res.Outcome.String()
	fmt.Fprintf(w, "Iteration %d: %s\n", res.Iteration, outcomeColor(outcome).Sprint(outcome))
	if len(res.Strategies) > 0 {
		fmt.Fprintf(w, "Strategies: %s\n", strings.Join(res.Strategies, ", "))
	}
	if res.Mutated != "" {
		fmt.Fprintf(w, "Mutated: %s\n", res.Mutated)
	}
	if res.FailureDir != "" {
		fmt.Fprintf(w, "Failure dir: %s\n", res.FailureDir)
	}
	if res.Err != nil {
		fmt.Fprintf(w, "\n%s", res.Err.Detail())
	}
}

// printSummaries writes a journal report table
func printSummaries(w io.Writer, summaries []*journal.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CAMPAIGN\tITERATIONS\tPASSED\tEXPECTED\tUNEXPECTED\tSETUP\tAVG LOAD\tLAST")
	for _, s := range summaries {
		avg := time.Duration(0)
		if s.Iterations > 0 {
			avg = s.TotalLoad / time.Duration(s.Iterations)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Campaign,
			s.Iterations,
			passedColor.Sprint(s.Outcomes[campaign.OutcomePassed.String()]),
			expectedColor.Sprint(s.Outcomes[campaign.OutcomeExpected.String()]),
			unexpectedColor.Sprint(s.Outcomes[campaign.OutcomeUnexpected.String()]),
			setupColor.Sprint(s.Outcomes[campaign.OutcomeSetup.String()]),
			avg.Round(time.Microsecond),
			s.Last.Format(time.RFC3339),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range summaries {
		if len(s.Signatures) == 0 && len(s.FailureDirs) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", s.Campaign)
		for _, sig := range sortedKeys(s.Signatures) {
			fmt.Fprintf(w, "  %-28s %d\n", sig, s.Signatures[sig])
		}
		for _, dir := range s.FailureDirs {
			fmt.Fprintf(w, "  %s\n", unexpectedColor.Sprint(dir))
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
