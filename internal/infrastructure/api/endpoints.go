package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Request describes one call to the remote rate service: where to send it,
// whether it needs a bearer token, and how long a cached response stays
// fresh (zero means the caller does not cache it).
type Request struct {
	Path         string
	Method       string
	Query        url.Values
	RequiresAuth bool
	CacheTTL     time.Duration
}

// CacheKey derives a deterministic cache key from the path and the sorted,
// stably-encoded query. url.Values.Encode sorts by key, so semantically
// identical requests collide to the same entry regardless of the order the
// parameters were added in.
func (r Request) CacheKey() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// String renders the descriptor for logs. Auth material is represented by
// a redaction marker only; the token itself is never part of a descriptor.
func (r Request) String() string {
	auth := "none"
	if r.RequiresAuth {
		auth = "bearer [REDACTED]"
	}
	return fmt.Sprintf("%s %s auth=%s", r.Method, r.CacheKey(), auth)
}

// Catalog builds request descriptors for each remote operation. TTLs come
// from configuration; symbols change far less often than rates.
type Catalog struct {
	LatestTTL  time.Duration
	SymbolsTTL time.Duration
}

// Health describes the liveness probe, the only unauthenticated operation.
func (c Catalog) Health() Request {
	return Request{Path: "/health", Method: http.MethodGet}
}

// LatestRates describes the current-rates fetch, optionally filtered to a
// set of currency codes.
func (c Catalog) LatestRates(currencies []string) Request {
	return Request{
		Path:         "/fx/latest",
		Method:       http.MethodGet,
		Query:        currencyFilter(currencies),
		RequiresAuth: true,
		CacheTTL:     c.LatestTTL,
	}
}

// HistoricalRates describes a single-date rates lookup. The date travels as
// a path segment; callers decide whether to cache the response.
func (c Catalog) HistoricalRates(date time.Time, currencies []string) Request {
	return Request{
		Path:         "/fx/date/" + date.Format(dateLayout),
		Method:       http.MethodGet,
		Query:        currencyFilter(currencies),
		RequiresAuth: true,
	}
}

// Timeframe describes a date-range rates lookup; both bounds are required.
func (c Catalog) Timeframe(start, end time.Time, currencies []string) Request {
	q := currencyFilter(currencies)
	if q == nil {
		q = url.Values{}
	}
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	return Request{
		Path:         "/fx/timeframe",
		Method:       http.MethodGet,
		Query:        q,
		RequiresAuth: true,
	}
}

// Convert describes a server-side conversion. A nil date means "today" on
// the server; a past date routes the conversion to historical data.
func (c Catalog) Convert(from, to string, amount float64, date *time.Time) Request {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	if date != nil {
		q.Set("date", date.Format(dateLayout))
	}
	return Request{
		Path:         "/fx/convert",
		Method:       http.MethodGet,
		Query:        q,
		RequiresAuth: true,
	}
}

// Symbols describes the supported-currencies listing.
func (c Catalog) Symbols() Request {
	return Request{
		Path:         "/fx/symbols",
		Method:       http.MethodGet,
		RequiresAuth: true,
		CacheTTL:     c.SymbolsTTL,
	}
}

func currencyFilter(currencies []string) url.Values {
	if len(currencies) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("currencies", strings.Join(currencies, ","))
	return q
}
