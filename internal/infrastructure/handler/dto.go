package handler

// ErrorResponse is the standardized error body of the facade.
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// HealthResponse reports upstream liveness.
type HealthResponse struct {
	Status   string `json:"status"`
	Upstream bool   `json:"upstream"`
}

// StatusResponse exposes the rate service's observable state.
type StatusResponse struct {
	CircuitOpen  bool   `json:"circuit_open"`
	AuthFailures int    `json:"auth_failures"`
	Loading      bool   `json:"loading"`
	LastError    string `json:"last_error,omitempty"`
	SnapshotBase string `json:"snapshot_base,omitempty"`
	SnapshotAge  string `json:"snapshot_age,omitempty"`
	MemoryCached int    `json:"memory_cached"`
	DiskCached   int    `json:"disk_cached"`
}

// ConversionResponse is the facade shape of a conversion result.
type ConversionResponse struct {
	Amount    float64 `json:"amount"`
	Converted float64 `json:"converted"`
	Rate      float64 `json:"rate"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Date      string  `json:"date"`
	Source    string  `json:"source"`
	Estimated bool    `json:"estimated"`
}
