package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/models"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) civil.Date {
	d, err := civil.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

func day(value string, v float64) models.MObservation {
	freq := "Daily"
	return models.MObservation{Category: "GDP", Value: v, Frequency: &freq, Timestamp: date(value).In(time.UTC)}
}

func f(v float64) *float64 { return &v }

func TestMergeSeries_AlignsAndPads(t *testing.T) {
	rows := MergeSeries(
		[]models.MObservation{day("2020-01-01", 5), day("2020-01-02", 7)},
		[]models.MObservation{day("2020-01-02", 9)},
	)

	want := []models.MComparisonRow{
		{Date: date("2020-01-01"), Country1Value: f(5), Country2Value: nil},
		{Date: date("2020-01-02"), Country1Value: f(7), Country2Value: f(9)},
	}
	assert.Equal(t, want, rows)

	encoded, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2020-01-01","country1":5,"country2":null},{"date":"2020-01-02","country1":7,"country2":9}]`, string(encoded))
}

func TestMergeSeries_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		series1 []models.MObservation
		series2 []models.MObservation
		want    []models.MComparisonRow
	}{
		{
			name: "both empty",
			want: []models.MComparisonRow{},
		},
		{
			name:    "only second series",
			series2: []models.MObservation{day("2021-03-01", 2), day("2021-01-01", 1)},
			want: []models.MComparisonRow{
				{Date: date("2021-01-01"), Country2Value: f(1)},
				{Date: date("2021-03-01"), Country2Value: f(2)},
			},
		},
		{
			name:    "duplicate day keeps last write",
			series1: []models.MObservation{day("2022-06-30", 1), day("2022-06-30", 3)},
			series2: []models.MObservation{day("2022-06-30", 4)},
			want: []models.MComparisonRow{
				{Date: date("2022-06-30"), Country1Value: f(3), Country2Value: f(4)},
			},
		},
		{
			name:    "unsorted input is sorted",
			series1: []models.MObservation{day("2019-12-31", 3), day("2018-12-31", 2), day("2020-12-31", 4)},
			want: []models.MComparisonRow{
				{Date: date("2018-12-31"), Country1Value: f(2)},
				{Date: date("2019-12-31"), Country1Value: f(3)},
				{Date: date("2020-12-31"), Country1Value: f(4)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeSeries(tt.series1, tt.series2))
		})
	}
}

func TestDateKey_UsesUTC(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want civil.Date
	}{
		{"ahead of UTC", time.Date(2020, 1, 2, 3, 0, 0, 0, time.FixedZone("JST", 9*3600)), civil.Date{Year: 2020, Month: time.January, Day: 1}},
		{"behind UTC", time.Date(2020, 12, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)), civil.Date{Year: 2021, Month: time.January, Day: 1}},
		{"midnight UTC", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), civil.Date{Year: 2024, Month: time.February, Day: 29}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateKey(models.MObservation{Timestamp: tt.ts}))
		})
	}
}

func TestMergeSeries_SortsAcrossYearBoundary(t *testing.T) {
	rows := MergeSeries(
		[]models.MObservation{day("2021-01-01", 2), day("2020-12-31", 1)},
		[]models.MObservation{day("2020-02-29", 3)},
	)
	require.Len(t, rows, 3)
	assert.Equal(t, "2020-02-29", rows[0].Date.String())
	assert.Equal(t, "2020-12-31", rows[1].Date.String())
	assert.Equal(t, "2021-01-01", rows[2].Date.String())
}

func TestCompareStats(t *testing.T) {
	rows := []models.MComparisonRow{
		{Date: date("2020-01-01"), Country1Value: f(1), Country2Value: f(2)},
		{Date: date("2020-01-02"), Country1Value: f(2)},
		{Date: date("2020-01-03"), Country1Value: f(3), Country2Value: f(6)},
		{Date: date("2020-01-04"), Country2Value: f(4)},
	}

	stats := CompareStats(rows)
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 2, stats.Overlap)
	assert.InDelta(t, 2.0, stats.Country1Mean, 1e-9)
	assert.InDelta(t, 4.0, stats.Country2Mean, 1e-9)
	assert.InDelta(t, 2.0, stats.Country1Change, 1e-9)
	assert.InDelta(t, 1.0, stats.Country2Change, 1e-9)
	assert.InDelta(t, 1.0, stats.Correlation, 1e-9)

	empty := CompareStats(nil)
	assert.Equal(t, models.MComparisonStats{}, empty)
}

// -----------------------------------------------------------------------------

type fakeHistories map[string]*models.MCountryHistory

func (h fakeHistories) GetHistory(_ context.Context, country string) (*models.MCountryHistory, error) {
	if history, ok := h[country]; ok {
		return history, nil
	}
	return models.NewCountryHistory(country, h.Indicators()), nil
}

func (h fakeHistories) Indicators() []string { return []string{"GDP", "Inflation Rate"} }

func TestAnalysisFacade_Compare(t *testing.T) {
	sweden := models.NewCountryHistory("Sweden", []string{"GDP", "Inflation Rate"})
	sweden.Results["GDP"] = models.Succeeded([]models.MObservation{day("2020-01-01", 5), day("2020-01-02", 7)})
	norway := models.NewCountryHistory("Norway", []string{"GDP", "Inflation Rate"})
	norway.Results["GDP"] = models.Succeeded([]models.MObservation{day("2020-01-02", 9)})
	norway.Results["Inflation Rate"] = models.Failed()

	facade := NewAnalysisFacade(fakeHistories{"Sweden": sweden, "Norway": norway}, nil)

	comparison, err := facade.Compare(context.Background(), "Sweden", "Norway", "gdp")
	require.NoError(t, err)
	assert.Equal(t, "GDP", comparison.Indicator)
	require.Len(t, comparison.Rows, 2)
	assert.Nil(t, comparison.Rows[0].Country2Value)
	assert.Equal(t, 1, comparison.Stats.Overlap)

	failed, err := facade.Compare(context.Background(), "Sweden", "Norway", "Inflation Rate")
	require.NoError(t, err)
	assert.Empty(t, failed.Rows, "failed and absent series contribute no rows")

	_, err = facade.Compare(context.Background(), "Sweden", "Norway", "Happiness")
	assert.ErrorIs(t, err, helpers.ErrUnknownIndicator)
}

func TestAnalysisFacade_CompareChart(t *testing.T) {
	sweden := models.NewCountryHistory("Sweden", []string{"GDP"})
	sweden.Results["GDP"] = models.Succeeded([]models.MObservation{day("2020-01-01", 5), day("2020-01-02", 7), day("2020-01-03", 6)})
	norway := models.NewCountryHistory("Norway", []string{"GDP"})
	norway.Results["GDP"] = models.Succeeded([]models.MObservation{day("2020-01-02", 9), day("2020-01-03", 8)})

	facade := NewAnalysisFacade(fakeHistories{"Sweden": sweden, "Norway": norway}, nil)

	png, err := facade.CompareChart(context.Background(), "Sweden", "Norway", "GDP")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = facade.CompareChart(context.Background(), "Atlantis", "Lemuria", "GDP")
	assert.ErrorIs(t, err, helpers.ErrNoChartData)
}
