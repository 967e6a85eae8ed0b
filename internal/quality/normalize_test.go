package quality

import (
	"context"
	"testing"

	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/internal/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNormalizeProfile(t *testing.T) {
	cases := []struct {
		name     string
		city     string
		wantCity string
		custName string
		wantName string
	}{
		{name: "upper city", city: "JAKARTA", wantCity: "Jakarta", custName: "Ana", wantName: "Ana"},
		{name: "padded multiword", city: "  south   jakarta ", wantCity: "South Jakarta", custName: " Budi  Santoso ", wantName: "Budi Santoso"},
		{name: "empty", city: "", wantCity: "", custName: "", wantName: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeProfile(sourcedomain.Customer{Name: tc.custName, City: tc.city})
			assert.Equal(t, tc.wantCity, got.City)
			assert.Equal(t, tc.wantName, got.Name)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	c1 := sourcetest.Customer("C1")
	c1.City = "bandung "
	c2 := sourcetest.Customer("C2")
	acc := &sourcetest.FakeAccessor{Snapshot: sourcedomain.Snapshot{Customers: []sourcedomain.Customer{c1, c2}}}
	n := NewNormalizer(acc, zaptest.NewLogger(t))

	out, updated, err := n.Normalize(context.Background(), acc.Snapshot.Customers)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, updated)
	assert.Equal(t, "Bandung", out[0].City)

	_, updated, err = n.Normalize(context.Background(), out)
	require.NoError(t, err)
	assert.Empty(t, updated)
	assert.Equal(t, []string{"C1"}, acc.ProfileWrites)
}
