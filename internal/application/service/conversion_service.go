package service

import (
	"context"
	"time"

	"github.com/centavo-app/fx-data-client/internal/domain/entity"
	"github.com/sirupsen/logrus"
)

// ConversionService decides whether a conversion runs on live or historical
// data and performs the local rate extraction. All remote work is delegated
// to the rate service.
type ConversionService struct {
	rates *RateService
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewConversionService creates a conversion service over the rate service.
func NewConversionService(rates *RateService, log logrus.FieldLogger) *ConversionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConversionService{rates: rates, log: log, now: time.Now}
}

// Convert converts an amount between two currencies as of a date.
//
// Same-currency conversions short-circuit before any network or cache
// access. Conversions dated today prefer the cached latest snapshot with
// local extraction, falling back to the server-side convert endpoint when
// extraction is not possible. Past dates always route to the historical
// convert endpoint; historical rates are a different point in time and are
// never served from the latest cache.
func (s *ConversionService) Convert(ctx context.Context, amount float64, from, to string, onDate time.Time) (*entity.ConversionResult, error) {
	if from == to {
		return entity.IdentityConversion(amount, from, onDate), nil
	}

	if !sameDay(onDate, s.now()) {
		return s.rates.Convert(ctx, amount, from, to, &onDate)
	}

	if _, err := s.rates.FetchLatestRates(ctx, nil); err != nil {
		s.log.WithError(err).Debug("latest rates unavailable, using server-side conversion")
		return s.rates.Convert(ctx, amount, from, to, nil)
	}
	if result := s.rates.ConvertLocally(amount, from, to); result != nil {
		return result, nil
	}

	// Codes missing from the snapshot may still be convertible upstream.
	return s.rates.Convert(ctx, amount, from, to, nil)
}

// ConvertLocallyIfPossible converts using only the current snapshot, with
// no I/O at all. Returns nil when the conversion is not possible locally.
func (s *ConversionService) ConvertLocallyIfPossible(amount float64, from, to string) *entity.ConversionResult {
	return s.rates.ConvertLocally(amount, from, to)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
