package analysis

import (
	"context"
	"fmt"
	"strings"

	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"

	"golang.org/x/sync/errgroup"
)

type AnalysisFacade struct {
	Histories interfaces.IHistoryProvider
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(histories interfaces.IHistoryProvider, log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AnalysisFacade{
		Histories: histories,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// ResolveIndicator maps a case-insensitive name onto the configured indicator.
func (a *AnalysisFacade) ResolveIndicator(indicator string) (string, error) {
	wanted := strings.TrimSpace(indicator)
	for _, known := range a.Histories.Indicators() {
		if strings.EqualFold(known, wanted) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", helpers.ErrUnknownIndicator, indicator)
}

// -----------------------------------------------------------------------------

// Compare aligns the indicator series of two countries by day. A country whose
// series is missing or failed contributes no values. Rows are never cached.
func (a *AnalysisFacade) Compare(ctx context.Context, country1, country2, indicator string) (*models.MComparison, error) {
	name, err := a.ResolveIndicator(indicator)
	if err != nil {
		return nil, err
	}

	// Both lookups may run together; the aggregator gate still serializes
	// their upstream batches.
	var history1, history2 *models.MCountryHistory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history1, err = a.Histories.GetHistory(gctx, country1)
		return err
	})
	g.Go(func() error {
		var err error
		history2, err = a.Histories.GetHistory(gctx, country2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := MergeSeries(history1.Series(name), history2.Series(name))
	a.Logger.Debug("Compared %s for %s and %s: %d rows", name, country1, country2, len(rows))

	return &models.MComparison{
		Country1:  strings.TrimSpace(country1),
		Country2:  strings.TrimSpace(country2),
		Indicator: name,
		Rows:      rows,
		Stats:     CompareStats(rows),
	}, nil
}

// -----------------------------------------------------------------------------

// CompareChart runs Compare and renders the result as a PNG.
func (a *AnalysisFacade) CompareChart(ctx context.Context, country1, country2, indicator string) ([]byte, error) {
	comparison, err := a.Compare(ctx, country1, country2, indicator)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s: %s vs %s", comparison.Indicator, comparison.Country1, comparison.Country2)
	return RenderComparisonChart(title, comparison.Country1, comparison.Country2, comparison.Rows)
}
