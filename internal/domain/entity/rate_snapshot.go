package entity

import (
	"maps"
	"time"
)

// Source tags recorded on snapshots and conversion results.
const (
	SourceIdentity = "identity"
	SourceSnapshot = "snapshot"
	SourceUpstream = "upstream"
)

// RateSnapshot is an immutable bundle of exchange rates against a single
// base currency as of a fetch time. The rate service replaces the current
// snapshot wholesale on every successful latest-rates fetch; a snapshot is
// never mutated in place.
type RateSnapshot struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	DateUsed  string             `json:"date_used"`
	FetchedAt time.Time          `json:"fetched_at"`
	Estimated bool               `json:"estimated"`
	Source    string             `json:"source"`
}

// Clone returns a deep copy so callers never share the rates map.
func (s *RateSnapshot) Clone() *RateSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Rates = maps.Clone(s.Rates)
	return &c
}

// RateBetween derives the conversion rate from one currency to another
// using only the rates in this snapshot:
//
//	from == base: rates[to]
//	to == base:   1 / rates[from]
//	otherwise:    rates[to] / rates[from] (cross rate via the shared base)
//
// Returns false when a required code is absent; a missing currency is
// "conversion not possible", never a zero rate.
func (s *RateSnapshot) RateBetween(from, to string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	if from == to {
		return 1, true
	}
	switch {
	case from == s.Base:
		rate, ok := s.Rates[to]
		if !ok || rate == 0 {
			return 0, false
		}
		return rate, true
	case to == s.Base:
		rate, ok := s.Rates[from]
		if !ok || rate == 0 {
			return 0, false
		}
		return 1 / rate, true
	default:
		fromRate, okFrom := s.Rates[from]
		toRate, okTo := s.Rates[to]
		if !okFrom || !okTo || fromRate == 0 {
			return 0, false
		}
		return toRate / fromRate, true
	}
}
