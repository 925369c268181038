package tradingeconomics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"
)

// SourceName identifies this fetcher in the fetch journal.
const SourceName = "tradingeconomics"

// dateLayouts are tried in order; values without an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// -----------------------------------------------------------------------------

// Source fetches indicator histories from the Trading Economics historical API.
type Source struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *Source {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Source{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

// FetchIndicator fetches one (country, indicator) history and keeps only the
// valid observations, in upstream order.
func (s *Source) FetchIndicator(ctx context.Context, country, indicator string) ([]models.MObservation, error) {
	endpoint := s.endpoint(country, indicator)

	params := map[string]string{"f": s.Config.Upstream.Format}
	if s.Config.Upstream.APIKey != "" {
		params["c"] = s.Config.Upstream.APIKey
	}

	body, err := s.Network.Get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", country, indicator, err)
	}

	observations, dropped, err := ParseHistorical(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", country, indicator, err)
	}

	valid := FilterValid(observations)
	s.Logger.Debug("Fetched %s/%s: %d valid of %d records (%d undated)",
		country, indicator, len(valid), len(observations)+dropped, dropped)
	return valid, nil
}

// -----------------------------------------------------------------------------

func (s *Source) endpoint(country, indicator string) string {
	base := strings.TrimRight(s.Config.Upstream.BaseURL, "/")
	return fmt.Sprintf("%s/historical/country/%s/indicator/%s",
		base,
		url.PathEscape(strings.ToLower(country)),
		url.PathEscape(strings.ToLower(indicator)),
	)
}

// -----------------------------------------------------------------------------

// ParseHistorical decodes the upstream array. Records whose DateTime cannot be
// parsed are skipped and counted in dropped. Anything other than a JSON array
// is a malformed payload.
func ParseHistorical(body []byte) (observations []models.MObservation, dropped int, err error) {
	var records []models.MUpstreamRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, 0, helpers.NewDataSourceError("decode historical payload",
			fmt.Errorf("%w: %v", helpers.ErrMalformedPayload, err))
	}

	observations = make([]models.MObservation, 0, len(records))
	for _, rec := range records {
		ts, ok := ParseDateTime(rec.DateTime)
		if !ok {
			dropped++
			continue
		}
		obs := models.MObservation{
			Category:  rec.Category,
			Frequency: rec.Frequency,
			Timestamp: ts,
		}
		if rec.Value != nil {
			obs.Value = *rec.Value
		}
		observations = append(observations, obs)
	}
	return observations, dropped, nil
}

// -----------------------------------------------------------------------------

// ParseDateTime reads the upstream DateTime field, always returning UTC.
func ParseDateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// -----------------------------------------------------------------------------

// FilterValid keeps the observations that satisfy MObservation.IsValid,
// preserving order. Applying it twice yields the same result as once.
func FilterValid(observations []models.MObservation) []models.MObservation {
	valid := make([]models.MObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.IsValid() {
			valid = append(valid, obs)
		}
	}
	return valid
}
