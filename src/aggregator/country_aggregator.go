package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"indicator-observer/src/cache"
	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"
	"indicator-observer/src/storage"
	"indicator-observer/src/utils"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// RefreshListener is called once per completed batch, after the gate is released.
type RefreshListener func(history *models.MCountryHistory)

// Options carries the collaborators of a CountryAggregator. Nil fields get
// working defaults, except Fetcher which is required.
type Options struct {
	Fetcher interfaces.IIndicatorFetcher
	Cache   *cache.TTLCache[*models.MCountryHistory]
	Gate    *utils.Gate
	Clock   clockwork.Clock
	Journal interfaces.IDatabase
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------
// CountryAggregator builds one MCountryHistory per country by fetching every
// configured indicator in order, one batch at a time across the process.
// -----------------------------------------------------------------------------

type CountryAggregator struct {
	indicators    []string
	allowlist     map[string]struct{}
	delay         time.Duration
	trailingDelay bool

	fetcher interfaces.IIndicatorFetcher
	cache   *cache.TTLCache[*models.MCountryHistory]
	gate    *utils.Gate
	clock   clockwork.Clock
	journal interfaces.IDatabase
	logger  *logger.Logger

	group singleflight.Group

	listenersMu sync.RWMutex
	listeners   []RefreshListener
}

// -----------------------------------------------------------------------------

func NewCountryAggregator(cfg *models.MConfig, opts Options) *CountryAggregator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	historyCache := opts.Cache
	if historyCache == nil {
		historyCache = cache.NewTTLCache[*models.MCountryHistory](
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			time.Duration(cfg.Cache.SweepIntervalSeconds)*time.Second,
			clock,
		)
	}
	gate := opts.Gate
	if gate == nil {
		gate = utils.NewGate()
	}
	journal := opts.Journal
	if journal == nil {
		journal = storage.NopDatabase{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var allowlist map[string]struct{}
	if len(cfg.Aggregator.Countries) > 0 {
		allowlist = make(map[string]struct{}, len(cfg.Aggregator.Countries))
		for _, c := range cfg.Aggregator.Countries {
			allowlist[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
		}
	}

	return &CountryAggregator{
		indicators:    append([]string(nil), cfg.Aggregator.Indicators...),
		allowlist:     allowlist,
		delay:         time.Duration(cfg.Aggregator.InterCallDelayMs) * time.Millisecond,
		trailingDelay: cfg.Aggregator.TrailingDelay,
		fetcher:       opts.Fetcher,
		cache:         historyCache,
		gate:          gate,
		clock:         clock,
		journal:       journal,
		logger:        log,
	}
}

// -----------------------------------------------------------------------------

// Indicators returns the configured fetch order.
func (a *CountryAggregator) Indicators() []string {
	return append([]string(nil), a.indicators...)
}

// -----------------------------------------------------------------------------

// OnRefresh registers a listener for completed batches.
func (a *CountryAggregator) OnRefresh(listener RefreshListener) {
	a.listenersMu.Lock()
	a.listeners = append(a.listeners, listener)
	a.listenersMu.Unlock()
}

// -----------------------------------------------------------------------------

// Invalidate drops the cached history for country so the next read refetches.
func (a *CountryAggregator) Invalidate(country string) {
	a.cache.Delete(strings.TrimSpace(country))
}

// -----------------------------------------------------------------------------

// CachedCountries lists the countries with a live cache entry, sorted.
func (a *CountryAggregator) CachedCountries() []string {
	keys := a.cache.Keys()
	sort.Strings(keys)
	return keys
}

// -----------------------------------------------------------------------------

// IsKnownCountry reports whether country passes the empty-name check and the
// optional allowlist.
func (a *CountryAggregator) IsKnownCountry(country string) bool {
	country = strings.TrimSpace(country)
	if country == "" {
		return false
	}
	if a.allowlist == nil {
		return true
	}
	_, ok := a.allowlist[strings.ToLower(country)]
	return ok
}

// -----------------------------------------------------------------------------

// GetHistory returns the history of country from the cache, or fetches it.
// An empty or unlisted country yields an all-absent history without any
// upstream call. Indicator failures are recorded in the history and never
// returned as an error; the error is non-nil only when ctx ends before the
// batch completes. The batch itself keeps running for other waiters.
func (a *CountryAggregator) GetHistory(ctx context.Context, country string) (*models.MCountryHistory, error) {
	key := strings.TrimSpace(country)
	if !a.IsKnownCountry(key) {
		return models.NewCountryHistory(key, a.indicators), nil
	}

	if history, ok := a.cache.Get(key); ok {
		return history, nil
	}

	batchCtx := context.WithoutCancel(ctx)
	resultCh := a.group.DoChan(key, func() (interface{}, error) {
		return a.refresh(batchCtx, key)
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.MCountryHistory), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (a *CountryAggregator) refresh(ctx context.Context, country string) (*models.MCountryHistory, error) {
	history, records, err := a.fetchUnderGate(ctx, country)
	if err != nil {
		return nil, err
	}
	if records == nil {
		// Another batch filled the cache while this one was queued.
		return history, nil
	}

	if err := a.journal.SaveFetchRecords(records); err != nil {
		a.logger.Error("Failed to journal batch for %s: %v", country, err)
	}
	a.notify(history)
	return history, nil
}

// -----------------------------------------------------------------------------

// fetchUnderGate holds the gate for the whole batch and publishes the result
// to the cache before releasing it. Records are nil when a batch queued ahead
// of this one already filled the cache.
func (a *CountryAggregator) fetchUnderGate(ctx context.Context, country string) (history *models.MCountryHistory, records []models.MFetchRecord, err error) {
	err = a.gate.Do(ctx, func() error {
		if cached, ok := a.cache.Get(country); ok {
			history = cached
			return nil
		}

		started := a.clock.Now()
		history, records = a.runBatch(ctx, country)
		a.cache.Set(country, history)

		failed := 0
		for _, r := range records {
			if r.Status == models.StatusFailed {
				failed++
			}
		}
		a.logger.Info("Fetched %s: %d indicators, %d failed in %v", country, len(records), failed, a.clock.Since(started))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return history, records, nil
}

// -----------------------------------------------------------------------------

// runBatch fetches each indicator in configured order, never concurrently,
// waiting the inter-call delay between consecutive calls.
func (a *CountryAggregator) runBatch(ctx context.Context, country string) (*models.MCountryHistory, []models.MFetchRecord) {
	history := models.NewCountryHistory(country, a.indicators)
	records := make([]models.MFetchRecord, 0, len(a.indicators))

	for i, indicator := range a.indicators {
		started := a.clock.Now()
		observations, err := a.fetchOne(ctx, country, indicator)

		record := models.MFetchRecord{
			Source:     a.fetcher.Name(),
			Country:    country,
			Indicator:  indicator,
			DurationMs: a.clock.Since(started).Milliseconds(),
			FetchedAt:  started.UTC(),
		}
		if err != nil {
			a.logger.Warning("Indicator %s for %s failed: %v", indicator, country, err)
			history.Results[indicator] = models.Failed()
			record.Status = models.StatusFailed
			record.Error = err.Error()
		} else {
			history.Results[indicator] = models.Succeeded(observations)
			record.Status = models.StatusSucceeded
			record.Observations = len(observations)
		}
		records = append(records, record)

		if i < len(a.indicators)-1 || a.trailingDelay {
			a.wait(ctx)
		}
	}

	history.FetchedAt = a.clock.Now().UTC()
	return history, records
}

// -----------------------------------------------------------------------------

// fetchOne turns a panic inside the fetcher into an ErrFetchFault.
func (a *CountryAggregator) fetchOne(ctx context.Context, country, indicator string) (observations []models.MObservation, err error) {
	defer func() {
		if r := recover(); r != nil {
			observations = nil
			err = fmt.Errorf("%w: %v", helpers.ErrFetchFault, r)
		}
	}()
	return a.fetcher.FetchIndicator(ctx, country, indicator)
}

// -----------------------------------------------------------------------------

func (a *CountryAggregator) wait(ctx context.Context) {
	if a.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-a.clock.After(a.delay):
	}
}

// -----------------------------------------------------------------------------

func (a *CountryAggregator) notify(history *models.MCountryHistory) {
	a.listenersMu.RLock()
	listeners := append([]RefreshListener(nil), a.listeners...)
	a.listenersMu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("Refresh listener panicked for %s: %v", history.Country, r)
				}
			}()
			listener(history)
		}()
	}
}
