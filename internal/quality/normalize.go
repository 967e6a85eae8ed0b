package quality

import (
	"context"
	"strings"

	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer cleans free-text customer profile fields in place. It is
// idempotent: rows that are already clean are never written.
type Normalizer struct {
	acc sourcedomain.Accessor
	log *zap.Logger
}

func NewNormalizer(acc sourcedomain.Accessor, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{acc: acc, log: log.Named("quality.normalize")}
}

// NormalizeProfile trims and collapses whitespace in name and city and
// title-cases city.
func NormalizeProfile(c sourcedomain.Customer) sourcedomain.CustomerProfile {
	caser := cases.Title(language.Und)
	return sourcedomain.CustomerProfile{
		Name: collapseSpace(c.Name),
		City: caser.String(strings.ToLower(collapseSpace(c.City))),
	}
}

// Normalize writes back every customer whose profile changes under
// NormalizeProfile and returns the customers with cleaned values applied
// along with the ids that were written.
func (n *Normalizer) Normalize(ctx context.Context, customers []sourcedomain.Customer) ([]sourcedomain.Customer, []string, error) {
	out := make([]sourcedomain.Customer, len(customers))
	copy(out, customers)

	var updated []string
	for i, c := range out {
		profile := NormalizeProfile(c)
		if profile.Name == c.Name && profile.City == c.City {
			continue
		}
		if err := n.acc.UpdateCustomerProfile(ctx, c.CustomerID, profile); err != nil {
			return nil, updated, err
		}
		out[i].Name = profile.Name
		out[i].City = profile.City
		updated = append(updated, c.CustomerID)
	}

	if len(updated) > 0 {
		n.log.Info("customer profiles normalized", zap.Int("updated_count", len(updated)))
	}
	return out, updated, nil
}

func collapseSpace(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
