package models

import "time"

// MUpstreamRecord is one element of the historical-data array returned upstream.
type MUpstreamRecord struct {
	Country              string   `json:"Country"`
	Category             string   `json:"Category"`
	DateTime             string   `json:"DateTime"`
	Value                *float64 `json:"Value"`
	Frequency            *string  `json:"Frequency"`
	HistoricalDataSymbol string   `json:"HistoricalDataSymbol"`
	LastUpdate           string   `json:"LastUpdate"`
}

// MObservation is a single data point for one indicator.
type MObservation struct {
	Category  string    `json:"category"`
	Value     float64   `json:"value"`
	Frequency *string   `json:"frequency"`
	Timestamp time.Time `json:"timestamp"`
}

// IsValid reports whether the observation may be stored: non-empty category,
// non-zero value and a known frequency.
func (o MObservation) IsValid() bool {
	return o.Category != "" && o.Value != 0.0 && o.Frequency != nil
}
