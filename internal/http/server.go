package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"casa/internal/cache"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/metrics"
	"casa/internal/middleware/ratelimit"
	"casa/internal/middleware/security"
	"casa/internal/middleware/trace"
	"casa/internal/services"
)

// AnalyticsComputer computes the dashboard figures of a year.
type AnalyticsComputer interface {
	Compute(ctx context.Context, year int) (core.Analytics, error)
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the use cases the API exposes.
type Deps struct {
	Expenses   *services.ExpenseService
	Snapshots  *services.SnapshotService
	Categories *services.CategoryService
	Split      *services.SplitSettingsService
	Backup     *services.BackupService
	Analytics  AnalyticsComputer
	Store      Pinger
}

// Config tunes the server. Zero values fall back to sensible defaults.
type Config struct {
	Addr              string
	RateLimitPerMin   int
	AnalyticsCacheTTL time.Duration
	AnalyticsCacheMax int
	// TrustedProxies are CIDRs whose forwarding headers are believed, in
	// addition to loopback and private ranges.
	TrustedProxies []string
	// BlockSuspicious rejects requests matching attack patterns instead of
	// only counting them.
	BlockSuspicious bool
	Logger          *log.Logger
	Now             func() time.Time
}

type Server struct {
	http.Server
	deps   Deps
	logger *log.Logger
	now    func() time.Time

	// Analytics results keyed by year, real month and generation. generation
	// bumps on every write so results computed before it are unreachable.
	analyticsCache *cache.LRUCache[core.Analytics]
	generation     atomic.Uint64
	flight         singleflight.Group
	cacheManager   *cache.Manager

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AnalyticsCacheTTL <= 0 {
		cfg.AnalyticsCacheTTL = 30 * time.Second
	}
	if cfg.AnalyticsCacheMax <= 0 {
		cfg.AnalyticsCacheMax = 32
	}

	s := &Server{
		deps:           deps,
		logger:         cfg.Logger.WithComponent(log.ComponentHTTP),
		now:            cfg.Now,
		analyticsCache: cache.NewLRUCache[core.Analytics](cfg.AnalyticsCacheMax, cfg.AnalyticsCacheTTL),
		cacheManager:   cache.NewManager(),
		detector:       security.NewDetector(),
		started:        cfg.Now(),
	}
	s.detector.Block = cfg.BlockSuspicious
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	rlCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMin > 0 {
		rlCfg.RequestsPerMinute = cfg.RateLimitPerMin
	}
	s.rateLimiter = ratelimit.NewLimiter(rlCfg)
	s.traceMiddleware = trace.NewMiddleware(cfg.Logger, s.detector.ExtractClientIP)

	s.cacheManager.Register(s.analyticsCache)
	s.cacheManager.StartCleanup(5 * time.Minute)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(s.traceMiddleware.Middleware)
	r.Use(log.Middleware(logger, trace.RequestIDFromRequest))
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, rateLimited,
			http.MethodPost, http.MethodPut, http.MethodDelete))

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Get("/split-settings", s.handleGetSplitSettings)
		r.Put("/split-settings", s.handleUpdateSplitSettings)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Get("/analytics", s.handleAnalytics)

		r.Get("/historical-expenses/{year}", s.handleListHistorical)
		r.Delete("/historical-expenses/{id}", s.handleDeleteHistorical)
		r.Post("/year-transition", s.handleYearTransition)

		r.Route("/database", func(r chi.Router) {
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Delete("/clear", s.handleClear)
			r.Post("/export/sheets", s.handleSheetsExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded. Please try again later."})
}

// analytics returns the figures for year, computing them at most once per
// generation and real month no matter how many requests ask concurrently.
func (s *Server) analytics(ctx context.Context, year int) (core.Analytics, error) {
	key := s.analyticsKey(year, s.generation.Load())

	if a, ok := s.analyticsCache.Get(key); ok {
		metrics.IncCacheLookup(true)
		return a, nil
	}
	metrics.IncCacheLookup(false)

	v, err, shared := s.flight.Do(key, func() (any, error) {
		// A flight that finished between our lookup and Do has filled the cache.
		if a, ok := s.analyticsCache.Get(key); ok {
			return a, nil
		}
		a, err := s.deps.Analytics.Compute(context.WithoutCancel(ctx), year)
		if err != nil {
			return core.Analytics{}, err
		}
		// Stored under the generation it started in; a write that landed
		// meanwhile moved readers to a new key.
		s.analyticsCache.Set(key, a)
		return a, nil
	})
	if err != nil {
		return core.Analytics{}, err
	}
	if shared {
		log.FromContext(ctx).DebugContext(ctx, "Analytics computation shared", log.FieldYear, year)
	}
	return v.(core.Analytics), nil
}

func (s *Server) analyticsKey(year int, gen uint64) string {
	return fmt.Sprintf("%d/%s#%d", year, s.now().Format("2006-01"), gen)
}

// invalidateAnalytics drops every cached result after a write.
func (s *Server) invalidateAnalytics() {
	s.generation.Add(1)
	s.analyticsCache.Purge()
}

// Shutdown stops background work and gracefully shuts the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		if err := s.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr = err
		}
	})
	return shutdownErr
}
