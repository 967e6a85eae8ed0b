package reconcile

import (
	"context"
	"errors"
	"sort"

	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"go.uber.org/zap"
)

// Reconciler is the only writer of customers.status. It demotes customers
// without an active connection to Inactive and never promotes anyone.
type Reconciler struct {
	acc sourcedomain.Accessor
	log *zap.Logger
}

func New(acc sourcedomain.Accessor, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{acc: acc, log: log.Named("reconcile")}
}

// ActiveCustomers returns the ids owning at least one Active SIM or fiber connection.
func ActiveCustomers(sims []sourcedomain.SimConnection, fibers []sourcedomain.FiberConnection) map[string]struct{} {
	active := make(map[string]struct{})
	for _, s := range sims {
		if s.IsActive() && s.CustomerID != nil {
			active[*s.CustomerID] = struct{}{}
		}
	}
	for _, f := range fibers {
		if f.IsActive() && f.CustomerID != nil {
			active[*f.CustomerID] = struct{}{}
		}
	}
	return active
}

// Pending lists, sorted, the customers that must be demoted. Customers already
// stored as the canonical Inactive are skipped so an unchanged dataset yields
// nothing to write; other spellings of inactive are rewritten once.
func Pending(customers []sourcedomain.Customer, sims []sourcedomain.SimConnection, fibers []sourcedomain.FiberConnection) []string {
	active := ActiveCustomers(sims, fibers)
	var ids []string
	for _, c := range customers {
		if _, ok := active[c.CustomerID]; ok {
			continue
		}
		if c.Status == sourcedomain.CustomerStatusInactive {
			continue
		}
		ids = append(ids, c.CustomerID)
	}
	sort.Strings(ids)
	return ids
}

// Reconcile writes Inactive for every pending customer and returns the ids
// actually updated. A customer deleted concurrently is skipped; any other
// write failure aborts and is returned.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	customers []sourcedomain.Customer,
	sims []sourcedomain.SimConnection,
	fibers []sourcedomain.FiberConnection,
) ([]string, error) {
	pending := Pending(customers, sims, fibers)
	updated := make([]string, 0, len(pending))
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		err := r.acc.UpdateCustomerStatus(ctx, id, sourcedomain.CustomerStatusInactive)
		if errors.Is(err, sourcedomain.ErrCustomerNotFound) {
			r.log.Warn("customer vanished before status write", zap.String("customer_id", id))
			continue
		}
		if err != nil {
			return updated, err
		}
		updated = append(updated, id)
	}

	r.log.Info("customer statuses reconciled",
		zap.Int("customer_count", len(customers)),
		zap.Int("updated_count", len(updated)),
	)
	return updated, nil
}

// ApplyStatuses returns a copy of customers with the given ids marked Inactive.
func ApplyStatuses(customers []sourcedomain.Customer, inactive []string) []sourcedomain.Customer {
	set := make(map[string]struct{}, len(inactive))
	for _, id := range inactive {
		set[id] = struct{}{}
	}
	out := make([]sourcedomain.Customer, len(customers))
	copy(out, customers)
	for i := range out {
		if _, ok := set[out[i].CustomerID]; ok {
			out[i].Status = sourcedomain.CustomerStatusInactive
		}
	}
	return out
}
