package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCatalogDescriptors(t *testing.T) {
	catalog := Catalog{LatestTTL: 15 * time.Minute, SymbolsTTL: 24 * time.Hour}

	t.Run("health is the only unauthenticated operation", func(t *testing.T) {
		req := catalog.Health()
		assert.Equal(t, "/health", req.Path)
		assert.False(t, req.RequiresAuth)
		assert.Zero(t, req.CacheTTL)
	})

	t.Run("latest rates", func(t *testing.T) {
		req := catalog.LatestRates([]string{"EUR", "DOP"})
		assert.Equal(t, "/fx/latest", req.Path)
		assert.True(t, req.RequiresAuth)
		assert.Equal(t, 15*time.Minute, req.CacheTTL)
		assert.Equal(t, "EUR,DOP", req.Query.Get("currencies"))

		unfiltered := catalog.LatestRates(nil)
		assert.Empty(t, unfiltered.Query)
	})

	t.Run("historical date is a path segment", func(t *testing.T) {
		date := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
		req := catalog.HistoricalRates(date, nil)
		assert.Equal(t, "/fx/date/2024-03-15", req.Path)
		assert.True(t, req.RequiresAuth)
		assert.Zero(t, req.CacheTTL)
	})

	t.Run("timeframe requires both bounds", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		req := catalog.Timeframe(start, end, []string{"EUR"})
		assert.Equal(t, "/fx/timeframe", req.Path)
		assert.Equal(t, "2024-01-01", req.Query.Get("start"))
		assert.Equal(t, "2024-01-31", req.Query.Get("end"))
		assert.Equal(t, "EUR", req.Query.Get("currencies"))
	})

	t.Run("convert serializes the amount", func(t *testing.T) {
		date := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)
		req := catalog.Convert("USD", "DOP", 1234.5, &date)
		assert.Equal(t, "/fx/convert", req.Path)
		assert.Equal(t, "USD", req.Query.Get("from"))
		assert.Equal(t, "DOP", req.Query.Get("to"))
		assert.Equal(t, "1234.5", req.Query.Get("amount"))
		assert.Equal(t, "2023-12-24", req.Query.Get("date"))

		sameDay := catalog.Convert("USD", "DOP", 100, nil)
		assert.False(t, sameDay.Query.Has("date"))
	})

	t.Run("symbols uses the long TTL", func(t *testing.T) {
		req := catalog.Symbols()
		assert.Equal(t, "/fx/symbols", req.Path)
		assert.Equal(t, 24*time.Hour, req.CacheTTL)
	})
}

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	first := url.Values{}
	first.Set("currencies", "EUR,DOP")
	first.Set("start", "2024-01-01")
	first.Set("end", "2024-01-31")

	second := url.Values{}
	second.Set("end", "2024-01-31")
	second.Set("start", "2024-01-01")
	second.Set("currencies", "EUR,DOP")

	a := Request{Path: "/fx/timeframe", Query: first}
	b := Request{Path: "/fx/timeframe", Query: second}
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	noQuery := Request{Path: "/fx/symbols"}
	assert.Equal(t, "/fx/symbols", noQuery.CacheKey())
}

func TestRequestStringRedactsAuth(t *testing.T) {
	authed := Catalog{}.Symbols()
	assert.Contains(t, authed.String(), "[REDACTED]")

	open := Catalog{}.Health()
	assert.Contains(t, open.String(), "auth=none")
}
