package analysis

import (
	"sort"

	"indicator-observer/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------

// DateKey is the calendar day of the observation timestamp in UTC.
func DateKey(obs models.MObservation) civil.Date {
	return civil.DateOf(obs.Timestamp.UTC())
}

// -----------------------------------------------------------------------------

// MergeSeries aligns two observation series by day. Every day present in
// either series yields exactly one row; the side without an observation on
// that day stays nil. Within one series the last observation of a day wins.
// Rows are sorted ascending by date.
func MergeSeries(series1, series2 []models.MObservation) []models.MComparisonRow {
	byDate := make(map[civil.Date]*models.MComparisonRow, len(series1)+len(series2))

	rowFor := func(date civil.Date) *models.MComparisonRow {
		row, ok := byDate[date]
		if !ok {
			row = &models.MComparisonRow{Date: date}
			byDate[date] = row
		}
		return row
	}

	for _, obs := range series1 {
		v := obs.Value
		rowFor(DateKey(obs)).Country1Value = &v
	}
	for _, obs := range series2 {
		v := obs.Value
		rowFor(DateKey(obs)).Country2Value = &v
	}

	rows := make([]models.MComparisonRow, 0, len(byDate))
	for _, row := range byDate {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}
