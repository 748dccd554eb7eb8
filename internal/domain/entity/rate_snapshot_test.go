package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *RateSnapshot {
	return &RateSnapshot{
		Base:      "USD",
		Rates:     map[string]float64{"EUR": 0.92, "DOP": 59.1, "ZERO": 0},
		DateUsed:  "2024-06-03",
		FetchedAt: time.Now(),
		Source:    SourceUpstream,
	}
}

func TestRateBetween(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name     string
		from, to string
		want     float64
		ok       bool
	}{
		{"identity", "EUR", "EUR", 1, true},
		{"from base", "USD", "DOP", 59.1, true},
		{"to base", "DOP", "USD", 1 / 59.1, true},
		{"cross rate", "DOP", "EUR", 0.92 / 59.1, true},
		{"unknown target", "USD", "XXX", 0, false},
		{"unknown source", "XXX", "USD", 0, false},
		{"zero rate denominator", "ZERO", "EUR", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snap.RateBetween(tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	snap := testSnapshot()
	clone := snap.Clone()
	require.NotNil(t, clone)

	clone.Rates["EUR"] = 99

	assert.Equal(t, 0.92, snap.Rates["EUR"])
	assert.Equal(t, snap.Base, clone.Base)
	assert.Equal(t, snap.DateUsed, clone.DateUsed)
}

func TestCloneNil(t *testing.T) {
	var snap *RateSnapshot
	assert.Nil(t, snap.Clone())
}

func TestIdentityConversion(t *testing.T) {
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	result := IdentityConversion(42.5, "GBP", date)

	assert.Equal(t, 42.5, result.Amount)
	assert.Equal(t, 42.5, result.Converted)
	assert.Equal(t, 1.0, result.Rate)
	assert.Equal(t, "GBP", result.From)
	assert.Equal(t, "GBP", result.To)
	assert.Equal(t, SourceIdentity, result.Source)
}
