// Package service contains the application services of the FX data client:
// the rate service orchestrating cache, transport and circuit breaker, and
// the conversion service routing conversions between live and historical
// data.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/centavo-app/fx-data-client/internal/domain/entity"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/api"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/cache"
	"github.com/sirupsen/logrus"
)

// latestResponse is the wire shape of /fx/latest and /fx/date/{date}.
type latestResponse struct {
	Base        string             `json:"base"`
	DateUsed    string             `json:"dateUsed"`
	Rates       map[string]float64 `json:"rates"`
	IsEstimated bool               `json:"isEstimated"`
	Source      string             `json:"source"`
}

// convertResponse is the wire shape of /fx/convert.
type convertResponse struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Amount      float64 `json:"amount"`
	Rate        float64 `json:"rate"`
	Result      float64 `json:"result"`
	Base        string  `json:"base"`
	DateUsed    string  `json:"dateUsed"`
	IsEstimated bool    `json:"isEstimated"`
	Source      string  `json:"source"`
}

// symbolsResponse is the wire shape of /fx/symbols.
type symbolsResponse struct {
	Symbols map[string]string `json:"symbols"`
}

// timeframeResponse is the wire shape of /fx/timeframe.
type timeframeResponse struct {
	Base        string                        `json:"base"`
	RatesByDate map[string]map[string]float64 `json:"ratesByDate"`
}

// RateService exposes the high-level FX operations and owns the circuit
// breaker and the current rate snapshot. All mutable state is serialized
// behind one mutex; accessors hand out copies only.
type RateService struct {
	enabled bool
	catalog api.Catalog
	client  *api.Client
	cache   *cache.ResponseCache
	token   api.TokenProvider
	log     logrus.FieldLogger

	mu           sync.Mutex
	snapshot     *entity.RateSnapshot
	loading      bool
	lastErr      *entity.DomainError
	circuitOpen  bool
	authFailures int
}

// NewRateService wires the rate service. The cache may be nil, in which
// case every read goes to the network.
func NewRateService(enabled bool, catalog api.Catalog, client *api.Client, respCache *cache.ResponseCache, token api.TokenProvider, log logrus.FieldLogger) *RateService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RateService{
		enabled: enabled,
		catalog: catalog,
		client:  client,
		cache:   respCache,
		token:   token,
		log:     log,
	}
}

// Snapshot returns a copy of the current rate snapshot, or nil before the
// first successful latest-rates fetch.
func (s *RateService) Snapshot() *entity.RateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Loading reports whether a remote operation is in progress.
func (s *RateService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the most recent domain error, or nil.
func (s *RateService) LastError() *entity.DomainError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// CircuitOpen reports whether the auth circuit breaker is open.
func (s *RateService) CircuitOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.circuitOpen
}

// AuthFailures reports the consecutive authentication failure count.
func (s *RateService) AuthFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authFailures
}

// ResetCircuitBreaker closes the circuit and clears the failure counter and
// last error. This is the only closed transition; there is deliberately no
// timed half-open probe, because a 401 means the credential is bad until it
// is rotated.
func (s *RateService) ResetCircuitBreaker() {
	s.mu.Lock()
	s.circuitOpen = false
	s.authFailures = 0
	s.lastErr = nil
	s.mu.Unlock()
	s.log.Info("circuit breaker reset")
}

// guard checks the shared preconditions before any I/O: feature enabled,
// circuit closed, token available.
func (s *RateService) guard() *entity.DomainError {
	if !s.enabled {
		return entity.NewDomainError(entity.ErrDisabled, "exchange rates are disabled by configuration")
	}
	s.mu.Lock()
	open := s.circuitOpen
	s.mu.Unlock()
	if open {
		return entity.NewDomainError(entity.ErrCircuitOpen, "circuit breaker is open, reset required")
	}
	if _, ok := s.token(); !ok {
		return entity.NewDomainError(entity.ErrNoToken, "no API token configured")
	}
	return nil
}

// FetchLatestRates fetches the current rates, cache-first, and replaces the
// held snapshot wholesale on success.
func (s *RateService) FetchLatestRates(ctx context.Context, currencies []string) (*entity.RateSnapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	s.setLoading(true)
	defer s.setLoading(false)

	req := s.catalog.LatestRates(currencies)
	body, err := s.fetchCached(ctx, req)
	if err != nil {
		return nil, s.recordFailure("latest rates", err)
	}

	var resp latestResponse
	if err := api.DecodeJSON(body, &resp); err != nil {
		return nil, s.recordFailure("latest rates", err)
	}

	source := resp.Source
	if source == "" {
		source = entity.SourceUpstream
	}
	snapshot := &entity.RateSnapshot{
		Base:      resp.Base,
		Rates:     resp.Rates,
		DateUsed:  resp.DateUsed,
		FetchedAt: time.Now(),
		Estimated: resp.IsEstimated,
		Source:    source,
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.authFailures = 0
	s.lastErr = nil
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"base":      snapshot.Base,
		"rates":     len(snapshot.Rates),
		"date_used": snapshot.DateUsed,
	}).Debug("latest rates updated")

	return snapshot.Clone(), nil
}

// Convert performs a server-side conversion. It always hits the network; a
// nil date converts at today's rate, a past date at that day's rate.
func (s *RateService) Convert(ctx context.Context, amount float64, from, to string, date *time.Time) (*entity.ConversionResult, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	s.setLoading(true)
	defer s.setLoading(false)

	var resp convertResponse
	if err := s.client.SendJSON(ctx, s.catalog.Convert(from, to, amount, date), &resp); err != nil {
		return nil, s.recordFailure("convert", err)
	}
	s.clearFailure()

	asOf := time.Now()
	if resp.DateUsed != "" {
		if parsed, err := time.Parse("2006-01-02", resp.DateUsed); err == nil {
			asOf = parsed
		}
	}
	source := resp.Source
	if source == "" {
		source = entity.SourceUpstream
	}
	return &entity.ConversionResult{
		Amount:    resp.Amount,
		Converted: resp.Result,
		Rate:      resp.Rate,
		From:      resp.From,
		To:        resp.To,
		Date:      asOf,
		Source:    source,
		Estimated: resp.IsEstimated,
	}, nil
}

// FetchSymbols returns the supported currency codes with display names,
// cache-first under the long-lived symbols TTL.
func (s *RateService) FetchSymbols(ctx context.Context) (map[string]string, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	s.setLoading(true)
	defer s.setLoading(false)

	req := s.catalog.Symbols()
	body, err := s.fetchCached(ctx, req)
	if err != nil {
		return nil, s.recordFailure("symbols", err)
	}
	var resp symbolsResponse
	if err := api.DecodeJSON(body, &resp); err != nil {
		return nil, s.recordFailure("symbols", err)
	}
	s.clearFailure()
	return resp.Symbols, nil
}

// FetchHistoricalRates returns the rates for a single past date. Historical
// lookups go straight to the network; they never touch the latest cache.
func (s *RateService) FetchHistoricalRates(ctx context.Context, date time.Time, currencies []string) (*entity.RateSnapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	s.setLoading(true)
	defer s.setLoading(false)

	var resp latestResponse
	if err := s.client.SendJSON(ctx, s.catalog.HistoricalRates(date, currencies), &resp); err != nil {
		return nil, s.recordFailure("historical rates", err)
	}
	s.clearFailure()

	source := resp.Source
	if source == "" {
		source = entity.SourceUpstream
	}
	return &entity.RateSnapshot{
		Base:      resp.Base,
		Rates:     resp.Rates,
		DateUsed:  resp.DateUsed,
		FetchedAt: time.Now(),
		Estimated: resp.IsEstimated,
		Source:    source,
	}, nil
}

// FetchTimeframe returns rates keyed by date over an inclusive range.
func (s *RateService) FetchTimeframe(ctx context.Context, start, end time.Time, currencies []string) (map[string]map[string]float64, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	s.setLoading(true)
	defer s.setLoading(false)

	var resp timeframeResponse
	if err := s.client.SendJSON(ctx, s.catalog.Timeframe(start, end, currencies), &resp); err != nil {
		return nil, s.recordFailure("timeframe", err)
	}
	s.clearFailure()
	return resp.RatesByDate, nil
}

// CheckHealth probes the no-auth health endpoint. It is the one operation
// that never raises; any failure is reported as false.
func (s *RateService) CheckHealth(ctx context.Context) bool {
	_, err := s.client.Send(ctx, s.catalog.Health())
	return err == nil
}

// ConvertLocally converts using only the held snapshot, without any I/O.
// Returns nil when no snapshot is loaded or a code cannot be resolved.
func (s *RateService) ConvertLocally(amount float64, from, to string) *entity.ConversionResult {
	if from == to {
		return entity.IdentityConversion(amount, from, time.Now())
	}

	snapshot := s.Snapshot()
	if snapshot == nil {
		return nil
	}
	rate, ok := snapshot.RateBetween(from, to)
	if !ok {
		return nil
	}
	return &entity.ConversionResult{
		Amount:    amount,
		Converted: amount * rate,
		Rate:      rate,
		From:      from,
		To:        to,
		Date:      snapshot.FetchedAt,
		Source:    entity.SourceSnapshot,
		Estimated: snapshot.Estimated,
	}
}

// fetchCached routes a read through the two-tier cache when one is wired
// and the descriptor declares a TTL.
func (s *RateService) fetchCached(ctx context.Context, req api.Request) ([]byte, error) {
	if s.cache == nil || req.CacheTTL <= 0 {
		return s.client.Send(ctx, req)
	}
	return s.cache.GetOrFetch(ctx, req.CacheKey(), req.CacheTTL, func(fetchCtx context.Context) ([]byte, error) {
		return s.client.Send(fetchCtx, req)
	})
}

func (s *RateService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *RateService) clearFailure() {
	s.mu.Lock()
	s.authFailures = 0
	s.lastErr = nil
	s.mu.Unlock()
}

// recordFailure maps a transport failure into the domain taxonomy, updates
// the circuit state, and remembers it as the last error. Caller
// cancellation passes through untouched.
func (s *RateService) recordFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		domainErr := &entity.DomainError{Kind: entity.ErrAPI, Message: op + " failed", Err: err}
		s.storeError(domainErr)
		return domainErr
	}

	var domainErr *entity.DomainError
	switch apiErr.Kind {
	case api.ErrUnauthorized:
		s.mu.Lock()
		s.authFailures++
		s.circuitOpen = true
		failures := s.authFailures
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"operation":     op,
			"auth_failures": failures,
		}).Warn("authentication failed, circuit breaker opened")
		domainErr = &entity.DomainError{
			Kind:      entity.ErrCircuitOpen,
			Message:   "authentication failed, circuit breaker opened",
			RequestID: apiErr.RequestID,
			Err:       apiErr,
		}
	case api.ErrRateLimited:
		domainErr = &entity.DomainError{
			Kind:      entity.ErrRateLimited,
			Message:   "rate limit exceeded, slow down",
			RequestID: apiErr.RequestID,
			Err:       apiErr,
		}
	case api.ErrNetwork, api.ErrTimeout:
		domainErr = &entity.DomainError{
			Kind:      entity.ErrNetworkUnavailable,
			Message:   op + " failed: service unreachable",
			RequestID: apiErr.RequestID,
			Err:       apiErr,
		}
	default:
		domainErr = &entity.DomainError{
			Kind:      entity.ErrAPI,
			Message:   op + " failed: " + apiErr.Message,
			RequestID: apiErr.RequestID,
			Err:       apiErr,
		}
	}

	s.storeError(domainErr)
	return domainErr
}

func (s *RateService) storeError(err *entity.DomainError) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
