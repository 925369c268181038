package projection

import (
	"context"

	"indicator-observer/src/interfaces"
	"indicator-observer/src/models"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

// SummaryProjector derives the latest value per indicator from the histories
// served by the aggregator. It holds no state of its own.
type SummaryProjector struct {
	Histories interfaces.IHistoryProvider
	Units     map[string]string
}

// -----------------------------------------------------------------------------

func NewSummaryProjector(histories interfaces.IHistoryProvider, units map[string]string) *SummaryProjector {
	return &SummaryProjector{Histories: histories, Units: units}
}

// -----------------------------------------------------------------------------

// GetLatest returns the summary for country, in configured indicator order.
func (p *SummaryProjector) GetLatest(ctx context.Context, country string) (*models.MLatestSummary, error) {
	history, err := p.Histories.GetHistory(ctx, country)
	if err != nil {
		return nil, err
	}
	return Summarize(history, p.Histories.Indicators()), nil
}

// -----------------------------------------------------------------------------

// CompareLatest fetches both countries concurrently and lays their latest
// values side by side.
func (p *SummaryProjector) CompareLatest(ctx context.Context, country1, country2 string) (*models.MLatestComparison, error) {
	var s1, s2 *models.MLatestSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s1, err = p.GetLatest(gctx, country1)
		return err
	})
	g.Go(func() error {
		var err error
		s2, err = p.GetLatest(gctx, country2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return CompareSummaries(s1, s2, p.Histories.Indicators(), p.Units), nil
}

// -----------------------------------------------------------------------------

// CompareSummaries builds one row per indicator. An indicator without a
// configured unit gets an empty one.
func CompareSummaries(s1, s2 *models.MLatestSummary, indicators []string, units map[string]string) *models.MLatestComparison {
	comparison := &models.MLatestComparison{
		Country1: s1.Country,
		Country2: s2.Country,
		Rows:     make([]models.MLatestComparisonRow, 0, len(indicators)),
	}
	for _, indicator := range indicators {
		row := models.MLatestComparisonRow{
			Indicator: indicator,
			Country1:  s1.Values[indicator],
			Country2:  s2.Values[indicator],
			Unit:      units[indicator],
		}
		if row.Country1.State == models.LatestValue && row.Country2.State == models.LatestValue {
			diff := row.Country1.Value - row.Country2.Value
			row.Difference = &diff
		}
		comparison.Rows = append(comparison.Rows, row)
	}
	return comparison
}

// -----------------------------------------------------------------------------

// Summarize projects history onto indicators. The last observation of a
// non-empty series wins; an empty series is "Not available"; a failed or
// missing slot is absent.
func Summarize(history *models.MCountryHistory, indicators []string) *models.MLatestSummary {
	summary := &models.MLatestSummary{
		Indicators: append([]string(nil), indicators...),
		Values:     make(map[string]models.MLatestValue, len(indicators)),
	}
	if history != nil {
		summary.Country = history.Country
	}

	for _, indicator := range indicators {
		summary.Values[indicator] = latestOf(history.Result(indicator))
	}
	return summary
}

// -----------------------------------------------------------------------------

func latestOf(result models.MIndicatorResult) models.MLatestValue {
	if result.Status != models.StatusSucceeded {
		return models.MLatestValue{State: models.LatestAbsent}
	}
	if len(result.Observations) == 0 {
		return models.MLatestValue{State: models.LatestNotAvailable}
	}
	last := result.Observations[len(result.Observations)-1]
	return models.MLatestValue{State: models.LatestValue, Value: last.Value}
}
