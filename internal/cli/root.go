// Package cli implements the telcopulse command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smallbiznis/telcopulse/internal/lock"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/spf13/cobra"
)

var Version = "0.1.0"

const (
	exitFailure     = 1
	exitFindings    = 2
	exitLockContest = 3
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "telcopulse",
		Short: "Telecom derived-metrics pipeline",
		Long: `telcopulse validates and reconciles telecom source tables, then
publishes monthly revenue and customer risk for analytics.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newRefreshCmd(),
		newReportCmd(),
		newMigrateCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, refresh.ErrFindingsPresent):
		return exitFindings
	case errors.Is(err, lock.ErrNotAcquired):
		return exitLockContest
	default:
		return exitFailure
	}
}
