package models

import "cloud.google.com/go/civil"

// MComparisonRow is one date-aligned row of a two-country comparison.
// A nil value means the country has no observation on that date. Date
// marshals as YYYY-MM-DD.
type MComparisonRow struct {
	Date          civil.Date `json:"date"`
	Country1Value *float64   `json:"country1"`
	Country2Value *float64   `json:"country2"`
}

// MComparisonStats summarises a comparison table.
type MComparisonStats struct {
	Rows           int     `json:"rows"`
	Overlap        int     `json:"overlap"`
	Country1Mean   float64 `json:"country1_mean"`
	Country1Std    float64 `json:"country1_std"`
	Country2Mean   float64 `json:"country2_mean"`
	Country2Std    float64 `json:"country2_std"`
	Country1Change float64 `json:"country1_change"` // first to last observation
	Country2Change float64 `json:"country2_change"`
	Correlation    float64 `json:"correlation"`
}

// MComparison is the payload served for a comparison request.
type MComparison struct {
	Country1  string           `json:"country1"`
	Country2  string           `json:"country2"`
	Indicator string           `json:"indicator"`
	Rows      []MComparisonRow `json:"rows"`
	Stats     MComparisonStats `json:"stats"`
}
