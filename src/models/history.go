package models

import "time"

// -----------------------------------------------------------------------------
// Per-indicator slot of a country history
// -----------------------------------------------------------------------------

type IndicatorStatus string

const (
	StatusSucceeded IndicatorStatus = "ok"
	StatusFailed    IndicatorStatus = "error"
	StatusAbsent    IndicatorStatus = "absent"
)

// MIndicatorResult is a tagged variant: Succeeded carries the (possibly empty)
// filtered observations, Failed and Absent carry none.
type MIndicatorResult struct {
	Status       IndicatorStatus `json:"status"`
	Observations []MObservation  `json:"observations"`
}

func Succeeded(observations []MObservation) MIndicatorResult {
	if observations == nil {
		observations = []MObservation{}
	}
	return MIndicatorResult{Status: StatusSucceeded, Observations: observations}
}

func Failed() MIndicatorResult {
	return MIndicatorResult{Status: StatusFailed}
}

func Absent() MIndicatorResult {
	return MIndicatorResult{Status: StatusAbsent}
}

// -----------------------------------------------------------------------------
// Country history
// -----------------------------------------------------------------------------

// MCountryHistory holds one result per configured indicator. It is built once
// per cache epoch and never mutated after it has been published.
type MCountryHistory struct {
	Country    string                      `json:"country"`
	FetchedAt  time.Time                   `json:"fetched_at"`
	Indicators []string                    `json:"indicators"`
	Results    map[string]MIndicatorResult `json:"results"`
}

// NewCountryHistory returns a history with every indicator absent.
func NewCountryHistory(country string, indicators []string) *MCountryHistory {
	h := &MCountryHistory{
		Country:    country,
		Indicators: append([]string(nil), indicators...),
		Results:    make(map[string]MIndicatorResult, len(indicators)),
	}
	for _, indicator := range indicators {
		h.Results[indicator] = Absent()
	}
	return h
}

// Result returns the slot for indicator, Absent when the indicator is unknown.
func (h *MCountryHistory) Result(indicator string) MIndicatorResult {
	if h == nil {
		return Absent()
	}
	result, ok := h.Results[indicator]
	if !ok {
		return Absent()
	}
	return result
}

// Series returns the stored observations for indicator, or nil when the slot
// did not succeed.
func (h *MCountryHistory) Series(indicator string) []MObservation {
	result := h.Result(indicator)
	if result.Status != StatusSucceeded {
		return nil
	}
	return result.Observations
}
