package interfaces

import (
	"context"

	"indicator-observer/src/models"
)

// -----------------------------------------------------------------------------
// IIndicatorFetcher fetches the history of one indicator for one country.
// -----------------------------------------------------------------------------

type IIndicatorFetcher interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchIndicator returns the valid observations for (country, indicator) in
	// upstream order. Any network, status or payload failure fails the whole call;
	// partial data is never returned.
	FetchIndicator(ctx context.Context, country, indicator string) ([]models.MObservation, error)
}
