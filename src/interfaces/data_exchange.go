package interfaces

import (
	"context"

	"indicator-observer/src/models"
)

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a refresh event to subscribed listeners.
	Broadcast(event models.MRefreshEvent)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// IHistoryProvider is the read side of the country aggregator, as seen by the
// projector, the merger and the outer surfaces.
// -----------------------------------------------------------------------------

type IHistoryProvider interface {
	// GetHistory returns the cached or freshly fetched history for country.
	GetHistory(ctx context.Context, country string) (*models.MCountryHistory, error)

	// Indicators returns the configured indicator order.
	Indicators() []string
}

// -----------------------------------------------------------------------------
// ICountryAggregator adds the admin side used by the server and control plane.
// -----------------------------------------------------------------------------

type ICountryAggregator interface {
	IHistoryProvider

	// Invalidate drops the cached history of country.
	Invalidate(country string)

	// CachedCountries lists the countries with a live cache entry.
	CachedCountries() []string

	// IsKnownCountry reports whether a request for country reaches upstream.
	IsKnownCountry(country string) bool
}
