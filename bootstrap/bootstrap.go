// Package bootstrap wires the application together: configuration,
// logging, storage selection, schema loading, route binding, and the
// HTTP server lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/clock"
	"github.com/artpar/schemagate/adapters/idgen"
	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/binding"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/core/storage"
	"github.com/artpar/schemagate/ports"
	"github.com/artpar/schemagate/web"
)

// App is the assembled application.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Store    *storage.Failover
	Registry *registry.Registry
	Binder   *binding.Binder
	Metrics  *metrics.Collector

	watcher *schema.Watcher
	server  *http.Server
}

// New assembles the application from configuration.
func New(cfg config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing schemagate")

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry.New(),
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	ids := idgen.UUID{}
	clk := clock.Real{}

	a.Store = openStore(cfg.Database, ids, clk, logger)
	if a.Metrics != nil {
		a.Store.OnDegrade(func() { a.Metrics.StoreFallback.Set(1) })
		if a.Store.Degraded() {
			a.Metrics.StoreFallback.Set(1)
		}
	}

	a.Binder = binding.New(binding.Config{
		Store:    a.Store,
		Registry: a.Registry,
		Clock:    clk,
		Logger:   logger,
		Persist: func(doc *schema.Document) error {
			return schema.SaveFile(cfg.Schema.File, doc)
		},
		OnRebind: func(entities int) {
			if a.Metrics != nil {
				a.Metrics.SchemaReloads.Inc()
				a.Metrics.BoundEntities.Set(float64(entities))
			}
		},
	})

	// Load the schema document. A missing or invalid file never stops
	// startup; the binder falls back to the default document.
	doc, err := schema.LoadFile(cfg.Schema.File)
	if err != nil {
		logger.Warn().Err(err).Msg("schema file unavailable, using default schema")
		doc = schema.Default()
	}
	routes := a.Binder.Load(context.Background(), doc)
	logger.Info().Int("entities", len(routes)).Msg("schema bound")

	if cfg.Schema.Watch {
		watcher, err := schema.NewWatcher(cfg.Schema.File, logger, a.applyWatched)
		if err != nil {
			logger.Warn().Err(err).Msg("schema watcher disabled")
		} else {
			a.watcher = watcher
		}
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.buildHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// applyWatched feeds documents from the file watcher into the binder.
func (a *App) applyWatched(doc *schema.Document) {
	if _, err := a.Binder.Apply(context.Background(), doc); err != nil {
		if a.Metrics != nil {
			a.Metrics.SchemaReloadErrors.Inc()
		}
		a.Logger.Error().Err(err).Msg("watched schema rejected, keeping current bindings")
	}
}

// buildHandler assembles the full HTTP surface: management routes,
// metrics, and the entity catch-all.
func (a *App) buildHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.Logger))
	r.Use(middleware.Recoverer)
	if a.Metrics != nil {
		r.Use(a.Metrics.Middleware)
	}

	web.NewHandler(a.Binder, a.Store, a.Logger).Register(r)

	if a.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Entity routes resolve against the binder's current snapshot, so
	// a schema swap needs no server restart.
	r.Mount("/", a.Binder)

	return r
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	if a.watcher != nil {
		if err := a.watcher.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("schema file watch failed")
		}
		a.watcher.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.server.Addr).Msg("server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigCh:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops the server and releases resources.
func (a *App) Shutdown() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// openStore opens the primary SQLite store with a bounded connection
// attempt, falling back to the in-memory store on any failure. Startup
// never fails over an unreachable database.
func openStore(cfg config.DatabaseConfig, ids ports.IDGenerator, clk ports.Clock, logger zerolog.Logger) *storage.Failover {
	fallback := storage.NewMemoryStore(ids, clk)

	if cfg.Path == "" {
		logger.Info().Msg("no database configured, using in-memory store")
		return storage.NewFailover(nil, fallback, logger)
	}

	primary, err := storage.NewSQLiteStore(cfg.Path, ids, clk)
	if err != nil {
		logger.Warn().Err(err).Msg("database unavailable, using in-memory store")
		return storage.NewFailover(nil, fallback, logger)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := primary.Ping(ctx); err != nil {
		primary.Close()
		logger.Warn().Err(err).Msg("database ping failed, using in-memory store")
		return storage.NewFailover(nil, fallback, logger)
	}

	logger.Info().Str("path", cfg.Path).Msg("database connected")
	return storage.NewFailover(primary, fallback, logger)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
