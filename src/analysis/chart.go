package analysis

import (
	"indicator-observer/src/helpers"
	"indicator-observer/src/models"

	"github.com/vicanso/go-charts/v2"
)

// -----------------------------------------------------------------------------

// RenderComparisonChart draws both series of rows as a PNG line chart. Days
// missing from one series are left as gaps in its line.
func RenderComparisonChart(title, label1, label2 string, rows []models.MComparisonRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, helpers.ErrNoChartData
	}

	null := charts.GetNullValue()
	dates := make([]string, len(rows))
	series1 := make([]float64, len(rows))
	series2 := make([]float64, len(rows))
	for i, row := range rows {
		dates[i] = row.Date.String()
		series1[i] = valueOr(row.Country1Value, null)
		series2[i] = valueOr(row.Country2Value, null)
	}

	split := 12
	if len(dates) < split {
		split = len(dates)
	}

	painter, err := charts.LineRender([][]float64{series1, series2},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: dates, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{label1, label2}, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// -----------------------------------------------------------------------------

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
