package models

import "time"

// MFetchRecord is one journal row describing a single upstream indicator call.
type MFetchRecord struct {
	Source       string          `json:"source"`
	Country      string          `json:"country"`
	Indicator    string          `json:"indicator"`
	Status       IndicatorStatus `json:"status"`
	Observations int             `json:"observations"`
	Error        string          `json:"error,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
	FetchedAt    time.Time       `json:"fetched_at"`
}
