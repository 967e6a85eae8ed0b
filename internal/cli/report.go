package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/insight"
	"github.com/smallbiznis/telcopulse/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func reportOptions() fx.Option {
	return fx.Options(
		pipeline(),
		report.Module,
	)
}

func newReportCmd() *cobra.Command {
	var (
		formatFlag string
		outPath    string
	)

	kinds := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:       fmt.Sprintf("report <%s>", strings.Join(kinds, "|")),
		Short:     "Render a derived-metrics report",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			var (
				svc      *insight.Service
				renderer *report.Renderer
				clk      clock.Clock
			)
			stop, err := startApp(cmd.Context(), reportOptions(), fx.Populate(&svc, &renderer, &clk))
			if err != nil {
				return err
			}
			defer stop()

			ds, err := report.Build(cmd.Context(), svc, kind, clk.Now())
			if err != nil {
				return err
			}

			if outPath == "" && format.Binary() {
				outPath = report.FileName(ds, format)
			}
			return writeReport(cmd, renderer, ds, format, outPath)
		},
	}

	formats := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		formats[i] = string(f)
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", string(report.FormatTable), "Output format ("+strings.Join(formats, "|")+")")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to a file instead of stdout")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func writeReport(cmd *cobra.Command, renderer *report.Renderer, ds report.Dataset, format report.Format, outPath string) error {
	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := renderer.Render(cmd.Context(), w, ds, format); err != nil {
		return fmt.Errorf("render %s report: %w", ds.Kind, err)
	}

	if outPath != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d rows)\n", outPath, len(ds.Rows))
	}
	return nil
}
