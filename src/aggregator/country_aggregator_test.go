package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"indicator-observer/src/cache"
	"indicator-observer/src/helpers"
	"indicator-observer/src/models"
	"indicator-observer/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIndicators = []string{"GDP", "Population", "Interest Rate"}

type call struct {
	country   string
	indicator string
}

// recordingFetcher logs every call and answers from behave.
type recordingFetcher struct {
	mu     sync.Mutex
	calls  []call
	behave func(country, indicator string) ([]models.MObservation, error)
}

func (f *recordingFetcher) Name() string { return "recording" }

func (f *recordingFetcher) FetchIndicator(_ context.Context, country, indicator string) ([]models.MObservation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{country, indicator})
	f.mu.Unlock()
	if f.behave != nil {
		return f.behave(country, indicator)
	}
	return []models.MObservation{observation(indicator, 1)}, nil
}

func (f *recordingFetcher) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type memoryJournal struct {
	mu      sync.Mutex
	records []models.MFetchRecord
	err     error
}

func (j *memoryJournal) Initialize() error { return nil }
func (j *memoryJournal) CleanupOldData() error { return nil }
func (j *memoryJournal) Close() error { return nil }

func (j *memoryJournal) SaveFetchRecords(records []models.MFetchRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, records...)
	return j.err
}

func (j *memoryJournal) RecentFetchRecords(country string, limit int) ([]models.MFetchRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]models.MFetchRecord(nil), j.records...), nil
}

func observation(category string, value float64) models.MObservation {
	freq := "Yearly"
	return models.MObservation{Category: category, Value: value, Frequency: &freq, Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func testConfig(delayMs int) *models.MConfig {
	return &models.MConfig{
		Cache:      models.MCacheConfig{TTLSeconds: 500, SweepIntervalSeconds: 200},
		Aggregator: models.MAggregatorConfig{InterCallDelayMs: delayMs, Indicators: testIndicators},
	}
}

func newTestAggregator(cfg *models.MConfig, fetcher *recordingFetcher, clock clockwork.Clock) *CountryAggregator {
	return NewCountryAggregator(cfg, Options{Fetcher: fetcher, Clock: clock})
}

// -----------------------------------------------------------------------------

func TestGetHistory_EmptyCountryShortCircuits(t *testing.T) {
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clockwork.NewFakeClock())

	for _, country := range []string{"", "   "} {
		history, err := agg.GetHistory(context.Background(), country)
		require.NoError(t, err)
		assert.Equal(t, testIndicators, history.Indicators)
		for _, indicator := range testIndicators {
			assert.Equal(t, models.StatusAbsent, history.Result(indicator).Status)
		}
	}
	assert.Empty(t, fetcher.Calls())
	assert.Empty(t, agg.CachedCountries())
}

func TestGetHistory_AllowlistRejectsUnknownCountry(t *testing.T) {
	cfg := testConfig(0)
	cfg.Aggregator.Countries = []string{"Sweden", "Japan"}
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(cfg, fetcher, clockwork.NewFakeClock())

	history, err := agg.GetHistory(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbsent, history.Result("GDP").Status)
	assert.Empty(t, fetcher.Calls())

	_, err = agg.GetHistory(context.Background(), "sweden")
	require.NoError(t, err)
	assert.Len(t, fetcher.Calls(), len(testIndicators))
}

func TestGetHistory_FetchesIndicatorsInOrder(t *testing.T) {
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clockwork.NewFakeClock())

	history, err := agg.GetHistory(context.Background(), "Sweden")
	require.NoError(t, err)

	want := []call{{"Sweden", "GDP"}, {"Sweden", "Population"}, {"Sweden", "Interest Rate"}}
	assert.Equal(t, want, fetcher.Calls())
	for _, indicator := range testIndicators {
		assert.Equal(t, models.StatusSucceeded, history.Result(indicator).Status)
		assert.Len(t, history.Series(indicator), 1)
	}
}

func TestGetHistory_CacheHitWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clock)

	first, err := agg.GetHistory(context.Background(), "Japan")
	require.NoError(t, err)

	clock.Advance(499 * time.Second)
	second, err := agg.GetHistory(context.Background(), "Japan")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, fetcher.Calls(), len(testIndicators))
	assert.Equal(t, []string{"Japan"}, agg.CachedCountries())
}

func TestGetHistory_RefetchesAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clock)

	_, err := agg.GetHistory(context.Background(), "Japan")
	require.NoError(t, err)

	clock.Advance(500 * time.Second)
	_, err = agg.GetHistory(context.Background(), "Japan")
	require.NoError(t, err)

	assert.Len(t, fetcher.Calls(), 2*len(testIndicators))
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clockwork.NewFakeClock())

	_, err := agg.GetHistory(context.Background(), "Italy")
	require.NoError(t, err)
	agg.Invalidate(" Italy ")
	_, err = agg.GetHistory(context.Background(), "Italy")
	require.NoError(t, err)

	assert.Len(t, fetcher.Calls(), 2*len(testIndicators))
}

func TestGetHistory_IsolatesIndicatorFailures(t *testing.T) {
	fetcher := &recordingFetcher{behave: func(_, indicator string) ([]models.MObservation, error) {
		switch indicator {
		case "Population":
			return nil, helpers.NewNetworkError("status 500", 500, helpers.ErrUpstreamStatus)
		case "Interest Rate":
			return []models.MObservation{}, nil
		}
		return []models.MObservation{observation(indicator, 2)}, nil
	}}
	journal := &memoryJournal{err: errors.New("disk full")}
	agg := NewCountryAggregator(testConfig(0), Options{Fetcher: fetcher, Clock: clockwork.NewFakeClock(), Journal: journal})

	history, err := agg.GetHistory(context.Background(), "France")
	require.NoError(t, err, "journal failures are never propagated")

	assert.Equal(t, models.StatusSucceeded, history.Result("GDP").Status)
	assert.Equal(t, models.StatusFailed, history.Result("Population").Status)
	assert.Equal(t, models.StatusSucceeded, history.Result("Interest Rate").Status)
	assert.Empty(t, history.Series("Interest Rate"))
	assert.Len(t, fetcher.Calls(), len(testIndicators))

	require.Len(t, journal.records, len(testIndicators))
	assert.Equal(t, models.StatusFailed, journal.records[1].Status)
	assert.Contains(t, journal.records[1].Error, "status 500")
	assert.Equal(t, 1, journal.records[0].Observations)
	assert.Equal(t, "recording", journal.records[0].Source)
}

func TestGetHistory_PanicReleasesGate(t *testing.T) {
	fetcher := &recordingFetcher{behave: func(country, indicator string) ([]models.MObservation, error) {
		if country == "Faulty" && indicator == "Population" {
			panic("upstream client blew up")
		}
		return []models.MObservation{observation(indicator, 3)}, nil
	}}
	gate := utils.NewGate()
	agg := NewCountryAggregator(testConfig(0), Options{Fetcher: fetcher, Clock: clockwork.NewFakeClock(), Gate: gate})

	history, err := agg.GetHistory(context.Background(), "Faulty")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, history.Result("Population").Status)
	assert.Equal(t, models.StatusSucceeded, history.Result("Interest Rate").Status)
	assert.False(t, gate.Locked())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := agg.GetHistory(ctx, "Healthy")
	require.NoError(t, err, "a faulted batch must not leak the gate")
	assert.Equal(t, models.StatusSucceeded, other.Result("Population").Status)
}

func TestGetHistory_HoldsGateForWholeBatch(t *testing.T) {
	gate := utils.NewGate()
	var unlocked atomic.Int32
	fetcher := &recordingFetcher{behave: func(_, indicator string) ([]models.MObservation, error) {
		if !gate.Locked() {
			unlocked.Add(1)
		}
		return []models.MObservation{observation(indicator, 1)}, nil
	}}
	agg := NewCountryAggregator(testConfig(0), Options{Fetcher: fetcher, Clock: clockwork.NewFakeClock(), Gate: gate})

	_, err := agg.GetHistory(context.Background(), "Chile")
	require.NoError(t, err)
	assert.Len(t, fetcher.Calls(), len(testIndicators))
	assert.Zero(t, unlocked.Load(), "every indicator call runs while the gate is held")
	assert.False(t, gate.Locked())

	// A cache hit found under the gate releases it too.
	_, err = agg.GetHistory(context.Background(), "Chile")
	require.NoError(t, err)
	assert.False(t, gate.Locked())
}

func TestGetHistory_BatchesNeverInterleave(t *testing.T) {
	fetcher := &recordingFetcher{behave: func(_, indicator string) ([]models.MObservation, error) {
		time.Sleep(2 * time.Millisecond)
		return []models.MObservation{observation(indicator, 4)}, nil
	}}
	agg := newTestAggregator(testConfig(0), fetcher, nil)

	countries := []string{"Brazil", "Chile", "Peru", "Mexico"}
	var wg sync.WaitGroup
	for _, country := range countries {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			_, err := agg.GetHistory(context.Background(), c)
			assert.NoError(t, err)
		}(country)
	}
	wg.Wait()

	calls := fetcher.Calls()
	require.Len(t, calls, len(countries)*len(testIndicators))
	for i := 0; i < len(calls); i += len(testIndicators) {
		batch := calls[i : i+len(testIndicators)]
		for j, c := range batch {
			assert.Equal(t, batch[0].country, c.country, "batch starting at call %d interleaved", i)
			assert.Equal(t, testIndicators[j], c.indicator)
		}
	}
}

func TestGetHistory_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	var started int32
	fetcher := &recordingFetcher{behave: func(_, indicator string) ([]models.MObservation, error) {
		if atomic.AddInt32(&started, 1) == 1 {
			<-release
		}
		return []models.MObservation{observation(indicator, 5)}, nil
	}}
	agg := newTestAggregator(testConfig(0), fetcher, nil)

	results := make([]*models.MCountryHistory, 5)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := agg.GetHistory(context.Background(), "Germany")
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Len(t, fetcher.Calls(), len(testIndicators))
	for _, h := range results {
		assert.Same(t, results[0], h)
	}
}

func TestGetHistory_CallerCancellationDoesNotAbortBatch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &recordingFetcher{behave: func(_, indicator string) ([]models.MObservation, error) {
		<-release
		return []models.MObservation{observation(indicator, 6)}, nil
	}}
	historyCache := cache.NewTTLCache[*models.MCountryHistory](time.Minute, time.Minute, nil)
	agg := NewCountryAggregator(testConfig(0), Options{Fetcher: fetcher, Cache: historyCache})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := agg.GetHistory(ctx, "Norway")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return len(fetcher.Calls()) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := historyCache.Get("Norway")
		return ok
	}, time.Second, time.Millisecond)
	assert.Len(t, fetcher.Calls(), len(testIndicators))
}

func TestGetHistory_DelaysBetweenIndicatorsOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(250), fetcher, clock)

	done := make(chan *models.MCountryHistory, 1)
	go func() {
		h, err := agg.GetHistory(context.Background(), "Canada")
		assert.NoError(t, err)
		done <- h
	}()

	for i := 1; i < len(testIndicators); i++ {
		clock.BlockUntil(1)
		assert.Len(t, fetcher.Calls(), i, "next indicator must wait for the delay")
		clock.Advance(250 * time.Millisecond)
	}

	select {
	case h := <-done:
		assert.Equal(t, models.StatusSucceeded, h.Result("Interest Rate").Status)
	case <-time.After(time.Second):
		t.Fatal("batch waited after the final indicator")
	}
	assert.Len(t, fetcher.Calls(), len(testIndicators))
}

func TestOnRefresh_NotifiesListeners(t *testing.T) {
	fetcher := &recordingFetcher{}
	agg := newTestAggregator(testConfig(0), fetcher, clockwork.NewFakeClock())

	var got []string
	agg.OnRefresh(func(h *models.MCountryHistory) { panic("listener bug") })
	agg.OnRefresh(func(h *models.MCountryHistory) { got = append(got, h.Country) })

	_, err := agg.GetHistory(context.Background(), "Kenya")
	require.NoError(t, err)
	_, err = agg.GetHistory(context.Background(), "Kenya")
	require.NoError(t, err)

	assert.Equal(t, []string{"Kenya"}, got, "cache hits do not notify")
}
