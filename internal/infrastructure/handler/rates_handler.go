// Package handler exposes the rate service over HTTP for the rest of the
// application.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/centavo-app/fx-data-client/internal/application/service"
	"github.com/centavo-app/fx-data-client/internal/domain/entity"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/cache"
	"github.com/centavo-app/fx-data-client/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// RatesHandler handles HTTP requests for FX rates and conversions.
type RatesHandler struct {
	rates      *service.RateService
	conversion *service.ConversionService
	cache      *cache.ResponseCache
	log        logrus.FieldLogger
}

// NewRatesHandler creates the facade handler.
func NewRatesHandler(rates *service.RateService, conversion *service.ConversionService, respCache *cache.ResponseCache, log logrus.FieldLogger) *RatesHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RatesHandler{rates: rates, conversion: conversion, cache: respCache, log: log}
}

// RegisterRoutes registers all facade routes.
func (h *RatesHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/fx/latest", h.LatestRates).Methods(http.MethodGet)
	router.HandleFunc("/fx/symbols", h.Symbols).Methods(http.MethodGet)
	router.HandleFunc("/fx/date/{date}", h.HistoricalRates).Methods(http.MethodGet)
	router.HandleFunc("/fx/timeframe", h.Timeframe).Methods(http.MethodGet)
	router.HandleFunc("/fx/convert", h.Convert).Methods(http.MethodGet)
	router.HandleFunc("/fx/status", h.Status).Methods(http.MethodGet)
	router.HandleFunc("/fx/circuit/reset", h.ResetCircuit).Methods(http.MethodPost)
	router.HandleFunc("/fx/cache/clear", h.ClearCache).Methods(http.MethodPost)
}

// Health probes upstream liveness; it always answers 200 with the result.
func (h *RatesHandler) Health(w http.ResponseWriter, r *http.Request) {
	upstream := h.rates.CheckHealth(r.Context())
	status := "ok"
	if !upstream {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: status, Upstream: upstream})
}

// LatestRates returns the current rate snapshot.
func (h *RatesHandler) LatestRates(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.rates.FetchLatestRates(r.Context(), currenciesParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Symbols returns the supported currency codes with display names.
func (h *RatesHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.rates.FetchSymbols(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": symbols})
}

// HistoricalRates returns the rates for a single past date.
func (h *RatesHandler) HistoricalRates(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, mux.Vars(r)["date"])
	if err != nil {
		h.badRequest(w, r, "Invalid date", "Date must be in YYYY-MM-DD form")
		return
	}
	snapshot, err := h.rates.FetchHistoricalRates(r.Context(), date, currenciesParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Timeframe returns rates keyed by date over an inclusive range.
func (h *RatesHandler) Timeframe(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		h.badRequest(w, r, "Invalid start date", "The 'start' query parameter is required in YYYY-MM-DD form")
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		h.badRequest(w, r, "Invalid end date", "The 'end' query parameter is required in YYYY-MM-DD form")
		return
	}
	ratesByDate, err := h.rates.FetchTimeframe(r.Context(), start, end, currenciesParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratesByDate": ratesByDate})
}

// Convert converts an amount between two currencies, optionally as of a
// past date. Routing between live and historical data is the conversion
// service's decision.
func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))
	if len(from) != 3 || len(to) != 3 {
		h.badRequest(w, r, "Invalid currency code", "Both 'from' and 'to' must be 3-letter currency codes")
		return
	}

	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || amount <= 0 {
		h.badRequest(w, r, "Invalid amount", "The 'amount' query parameter must be a positive number")
		return
	}

	onDate := time.Now()
	if raw := q.Get("date"); raw != "" {
		if onDate, err = time.Parse(dateLayout, raw); err != nil {
			h.badRequest(w, r, "Invalid date", "Date must be in YYYY-MM-DD form")
			return
		}
	}

	result, err := h.conversion.Convert(r.Context(), amount, from, to, onDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionResponse{
		Amount:    result.Amount,
		Converted: result.Converted,
		Rate:      result.Rate,
		From:      result.From,
		To:        result.To,
		Date:      result.Date.Format(dateLayout),
		Source:    result.Source,
		Estimated: result.Estimated,
	})
}

// Status exposes the observable state for dashboards and support.
func (h *RatesHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		CircuitOpen:  h.rates.CircuitOpen(),
		AuthFailures: h.rates.AuthFailures(),
		Loading:      h.rates.Loading(),
	}
	if lastErr := h.rates.LastError(); lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	if snapshot := h.rates.Snapshot(); snapshot != nil {
		resp.SnapshotBase = snapshot.Base
		resp.SnapshotAge = time.Since(snapshot.FetchedAt).Truncate(time.Second).String()
	}
	if h.cache != nil {
		resp.MemoryCached = h.cache.MemoryLen()
		if n, err := h.cache.StoreLen(); err == nil {
			resp.DiskCached = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetCircuit closes the circuit breaker. Operator action, typically after
// rotating the API credential.
func (h *RatesHandler) ResetCircuit(w http.ResponseWriter, r *http.Request) {
	h.rates.ResetCircuitBreaker()
	h.log.WithField("request_id", middleware.GetRequestID(r.Context())).Info("circuit breaker reset via API")
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache drops both cache tiers.
func (h *RatesHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.cache.ClearAll(); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RatesHandler) badRequest(w http.ResponseWriter, r *http.Request, msg, description string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:       msg,
		Status:      http.StatusBadRequest,
		Description: description,
		RequestID:   middleware.GetRequestID(r.Context()),
	})
}

// writeError maps domain errors to HTTP statuses, carrying the upstream
// correlation id through when one exists.
func (h *RatesHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"
	requestID := middleware.GetRequestID(r.Context())

	var domainErr *entity.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case entity.ErrDisabled, entity.ErrCircuitOpen:
			status = http.StatusServiceUnavailable
		case entity.ErrNoToken:
			status = http.StatusUnauthorized
		case entity.ErrRateLimited:
			status = http.StatusTooManyRequests
		case entity.ErrNetworkUnavailable, entity.ErrAPI:
			status = http.StatusBadGateway
		case entity.ErrUnsupportedCurrency, entity.ErrConversionFailed:
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
		}
		msg = domainErr.Message
		if domainErr.RequestID != "" {
			requestID = domainErr.RequestID
		}
	}

	h.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"path":       r.URL.Path,
		"status":     status,
		"error":      err.Error(),
	}).Warn("request failed")

	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Status:    status,
		RequestID: requestID,
	})
}

func currenciesParam(r *http.Request) []string {
	raw := r.URL.Query().Get("currencies")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	currencies := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.ToUpper(strings.TrimSpace(p)); trimmed != "" {
			currencies = append(currencies, trimmed)
		}
	}
	return currencies
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
