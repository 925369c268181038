package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"indicator-observer/src/analysis"
	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"
	"indicator-observer/src/projection"

	"github.com/gin-gonic/gin"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// Services are the read and admin operations exposed over HTTP.
type Services struct {
	Aggregator interfaces.ICountryAggregator
	Projector  *projection.SummaryProjector
	Analysis   *analysis.AnalysisFacade
	Journal    interfaces.IDatabase
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	services Services
	engine   *gin.Engine
	http     *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan models.MRefreshEvent
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	hubOnce    sync.Once
	stopOnce   sync.Once
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, log *logger.Logger, services Services) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   log,
		services: services,
		engine:   gin.New(),
		clients:  make(map[*Client]struct{}),
		// Buffered so a refresh never waits on the hub
		broadcast:  make(chan models.MRefreshEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/history/:country", s.getHistory)
	api.GET("/latest/compare", s.getLatestCompare)
	api.GET("/latest/:country", s.getLatest)
	api.GET("/compare", s.getCompare)
	api.GET("/compare/chart", s.getCompareChart)
	api.GET("/journal", s.getJournal)
	api.DELETE("/cache/:country", s.deleteCache)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Handler exposes the routes and starts the websocket hub.
func (s *APIServer) Handler() http.Handler {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
	return s.engine
}

// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	s.Handler()
	s.Logger.Info("Starting server on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop closes every websocket client and drains in-flight HTTP requests.
func (s *APIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.quit) })
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"connections":      connections,
		"cached_countries": s.services.Aggregator.CachedCountries(),
	})
}

// -----------------------------------------------------------------------------

// getConfig never includes the upstream credential.
func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"indicators":             s.services.Aggregator.Indicators(),
		"countries":              s.Config.Aggregator.Countries,
		"units":                  s.Config.Aggregator.Units,
		"ttl_seconds":            s.Config.Cache.TTLSeconds,
		"sweep_interval_seconds": s.Config.Cache.SweepIntervalSeconds,
		"inter_call_delay_ms":    s.Config.Aggregator.InterCallDelayMs,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistory(c *gin.Context) {
	if !s.knownCountries(c, c.Param("country")) {
		return
	}
	history, err := s.services.Aggregator.GetHistory(c.Request.Context(), c.Param("country"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getLatest(c *gin.Context) {
	if !s.knownCountries(c, c.Param("country")) {
		return
	}
	summary, err := s.services.Projector.GetLatest(c.Request.Context(), c.Param("country"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getLatestCompare(c *gin.Context) {
	country1 := strings.TrimSpace(c.Query("country1"))
	country2 := strings.TrimSpace(c.Query("country2"))
	if country1 == "" || country2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "country1 and country2 are required"})
		return
	}
	if !s.knownCountries(c, country1, country2) {
		return
	}
	comparison, err := s.services.Projector.CompareLatest(c.Request.Context(), country1, country2)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getCompare(c *gin.Context) {
	country1, country2, indicator, ok := compareParams(c)
	if !ok || !s.knownCountries(c, country1, country2) {
		return
	}
	comparison, err := s.services.Analysis.Compare(c.Request.Context(), country1, country2, indicator)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getCompareChart(c *gin.Context) {
	country1, country2, indicator, ok := compareParams(c)
	if !ok || !s.knownCountries(c, country1, country2) {
		return
	}
	png, err := s.services.Analysis.CompareChart(c.Request.Context(), country1, country2, indicator)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getJournal(c *gin.Context) {
	limit := defaultJournalLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxJournalLimit)
	}

	records, err := s.services.Journal.RecentFetchRecords(strings.TrimSpace(c.Query("country")), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// -----------------------------------------------------------------------------

func (s *APIServer) deleteCache(c *gin.Context) {
	country := strings.TrimSpace(c.Param("country"))
	s.services.Aggregator.Invalidate(country)
	s.Logger.Info("Cache invalidated for %s", country)
	c.JSON(http.StatusOK, gin.H{"invalidated": country})
}

// -----------------------------------------------------------------------------

// knownCountries answers 404 for the first country outside the allowlist.
func (s *APIServer) knownCountries(c *gin.Context, countries ...string) bool {
	for _, country := range countries {
		if !s.services.Aggregator.IsKnownCountry(country) {
			s.fail(c, fmt.Errorf("%w: %s", helpers.ErrUnknownCountry, country))
			return false
		}
	}
	return true
}

func compareParams(c *gin.Context) (string, string, string, bool) {
	country1 := strings.TrimSpace(c.Query("country1"))
	country2 := strings.TrimSpace(c.Query("country2"))
	indicator := strings.TrimSpace(c.Query("indicator"))
	if country1 == "" || country2 == "" || indicator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "country1, country2 and indicator are required"})
		return "", "", "", false
	}
	return country1, country2, indicator, true
}

// -----------------------------------------------------------------------------

// fail maps domain errors onto HTTP statuses.
func (s *APIServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, helpers.ErrUnknownIndicator):
		status = http.StatusBadRequest
	case errors.Is(err, helpers.ErrNoChartData), errors.Is(err, helpers.ErrUnknownCountry):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		s.Logger.Error("Request %s failed: %v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

// requestLogger logs each request through the service logger, path only.
func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
