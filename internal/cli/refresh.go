package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const maxSampleIDs = 5

func newRefreshCmd() *cobra.Command {
	var (
		strict bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run the derived-metrics pipeline once",
		Long: `Validates and reconciles the source tables, then republishes the
monthly revenue and customer risk tables. Findings are reported but do not
fail the run unless --strict is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var orchestrator *refresh.Orchestrator
			stop, err := startApp(cmd.Context(), pipeline(), fx.Populate(&orchestrator))
			if err != nil {
				return err
			}
			defer stop()

			result, runErr := orchestrator.Run(cmd.Context(), refresh.WithTrigger(refresh.TriggerCLI))
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeRunJSON(out, result); err != nil {
					return err
				}
			} else {
				writeRunSummary(out, result)
			}

			if runErr != nil {
				return runErr
			}
			if strict {
				return result.Strict()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when validation findings are present")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run record as JSON")
	return cmd
}

func writeRunJSON(w io.Writer, result refresh.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Record())
}

func writeRunSummary(w io.Writer, result refresh.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Refresh run %s", result.RunID.String())
	t.AppendRows([]table.Row{
		{"Status", string(result.Status)},
		{"Last state", string(result.LastState)},
		{"Duration", result.Duration.String()},
		{"Findings", strconv.Itoa(result.Report.FindingCount())},
		{"Reconciled", strconv.Itoa(len(result.Reconciled))},
		{"Normalized", strconv.Itoa(len(result.Normalized))},
	})

	artifacts := make([]string, 0, len(result.Rows))
	for name := range result.Rows {
		artifacts = append(artifacts, name)
	}
	sort.Strings(artifacts)
	for _, name := range artifacts {
		t.AppendRow(table.Row{"Rows " + name, strconv.Itoa(result.Rows[name])})
	}
	for _, e := range result.ArtifactErrors {
		t.AppendRow(table.Row{"Failed " + e.Artifact, e.Err.Error()})
	}
	t.Render()

	findings := result.Report.Findings()
	if len(findings) == 0 {
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetStyle(table.StyleLight)
	ft.SetTitle("Validation findings")
	ft.AppendHeader(table.Row{"Rule", "Entity", "Count", "Sample"})
	for _, f := range findings {
		sample := f.OffendingIDs
		if len(sample) > maxSampleIDs {
			sample = sample[:maxSampleIDs]
		}
		ft.AppendRow(table.Row{string(f.Rule), string(f.Entity), len(f.OffendingIDs), strings.Join(sample, ", ")})
	}
	ft.Render()
	_, _ = fmt.Fprintln(w)
}
