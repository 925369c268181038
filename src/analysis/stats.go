package analysis

import (
	"indicator-observer/src/analysis/core"
	"indicator-observer/src/models"
)

// -----------------------------------------------------------------------------

// CompareStats summarises merged rows. Means, deviations and changes use each
// country's own observations; the correlation only uses days both share.
func CompareStats(rows []models.MComparisonRow) models.MComparisonStats {
	values1 := core.Column(rows, core.First)
	values2 := core.Column(rows, core.Second)
	paired1, paired2 := core.Overlap(rows)

	stats := models.MComparisonStats{
		Rows:           len(rows),
		Overlap:        len(paired1),
		Country1Change: core.RelativeChange(values1),
		Country2Change: core.RelativeChange(values2),
		Correlation:    core.Pearson(paired1, paired2),
	}
	stats.Country1Mean, stats.Country1Std = core.Moments(values1)
	stats.Country2Mean, stats.Country2Std = core.Moments(values2)
	return stats
}
