package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotAvailable is emitted for indicators whose fetch succeeded without any
// valid observation.
const NotAvailable = "Not available"

type LatestState int

const (
	LatestAbsent LatestState = iota
	LatestNotAvailable
	LatestValue
)

// MLatestValue is a number, "Not available", or absent.
type MLatestValue struct {
	State LatestState
	Value float64
}

func (v MLatestValue) MarshalJSON() ([]byte, error) {
	switch v.State {
	case LatestValue:
		return json.Marshal(v.Value)
	case LatestNotAvailable:
		return json.Marshal(NotAvailable)
	default:
		return []byte("null"), nil
	}
}

func (v *MLatestValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = MLatestValue{State: LatestAbsent}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text != NotAvailable {
			return fmt.Errorf("latest value: unexpected string %q", text)
		}
		*v = MLatestValue{State: LatestNotAvailable}
		return nil
	}
	var number float64
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*v = MLatestValue{State: LatestValue, Value: number}
	return nil
}

// MLatestSummary is the latest observed value per indicator for one country.
type MLatestSummary struct {
	Country    string                  `json:"country"`
	Indicators []string                `json:"indicators"`
	Values     map[string]MLatestValue `json:"values"`
}

// MLatestComparisonRow puts the latest value of one indicator for two
// countries side by side. Difference is Country1 minus Country2 and is set
// only when both sides hold a number.
type MLatestComparisonRow struct {
	Indicator  string       `json:"indicator"`
	Country1   MLatestValue `json:"country1"`
	Country2   MLatestValue `json:"country2"`
	Difference *float64     `json:"difference"`
	Unit       string       `json:"unit"`
}

// MLatestComparison is the per-indicator table for two countries, in
// configured indicator order.
type MLatestComparison struct {
	Country1 string                 `json:"country1"`
	Country2 string                 `json:"country2"`
	Rows     []MLatestComparisonRow `json:"rows"`
}

// -----------------------------------------------------------------------------
// Server push payloads
// -----------------------------------------------------------------------------

// MRefreshEvent is broadcast after a country history has been rebuilt.
type MRefreshEvent struct {
	Type       string                     `json:"type"` // "REFRESH"
	Country    string                     `json:"country"`
	FetchedAt  time.Time                  `json:"fetched_at"`
	Indicators map[string]IndicatorStatus `json:"indicators"`
}

// MSubscribedEvent acknowledges a subscribe command.
type MSubscribedEvent struct {
	Type      string   `json:"type"` // "SUBSCRIBED"
	Countries []string `json:"countries"`
}

// MSubscribeCommand for client messages
type MSubscribeCommand struct {
	Command   string   `json:"command"`
	Countries []string `json:"countries"`
}
