package server

import "indicator-observer/src/models"

// -----------------------------------------------------------------------------

// RefreshEvent summarises a rebuilt history for websocket subscribers.
func RefreshEvent(history *models.MCountryHistory) models.MRefreshEvent {
	statuses := make(map[string]models.IndicatorStatus, len(history.Indicators))
	for _, indicator := range history.Indicators {
		statuses[indicator] = history.Result(indicator).Status
	}
	return models.MRefreshEvent{
		Type:       "REFRESH",
		Country:    history.Country,
		FetchedAt:  history.FetchedAt,
		Indicators: statuses,
	}
}
