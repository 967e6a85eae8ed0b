package source

import (
	"context"
	"time"

	"github.com/smallbiznis/telcopulse/internal/source/domain"
	"golang.org/x/sync/errgroup"
)

// LoadSnapshot reads all five source tables concurrently. Any failure cancels
// the remaining reads and is returned as-is.
func LoadSnapshot(ctx context.Context, acc domain.Accessor, now time.Time) (domain.Snapshot, error) {
	snap := domain.Snapshot{FetchedAt: now.UTC()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := acc.FetchCustomers(gctx)
		snap.Customers = rows
		return err
	})
	g.Go(func() error {
		rows, err := acc.FetchPlans(gctx)
		snap.Plans = rows
		return err
	})
	g.Go(func() error {
		rows, err := acc.FetchSimConnections(gctx)
		snap.Sims = rows
		return err
	})
	g.Go(func() error {
		rows, err := acc.FetchFiberConnections(gctx)
		snap.Fibers = rows
		return err
	})
	g.Go(func() error {
		rows, err := acc.FetchPayments(gctx, nil)
		snap.Payments = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}
