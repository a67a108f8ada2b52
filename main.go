package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/config"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/docstore"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/health"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/httpapi"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/locator"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/pdfengine"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/render"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/source"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tracing"
)

func main() {
	cfgPath := config.Path()
	conf, err := config.LoadFile(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	logger, err := newLogger(conf.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Configuration loaded", zap.String("path", cfgPath))

	shutdownTracing, err := tracing.Initialize(conf.Tracing, logger)
	if err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	hm := health.NewManager(logger)

	// ------------------------------------------------------------------
	// Page geometry: local LRU, optionally backed by Redis
	// ------------------------------------------------------------------
	local := pdfengine.NewLocalLRU(conf.Cache.LocalCapacity)
	var geoCache pdfengine.GeometryCache = local
	var redisCache *pdfengine.RedisCache
	if conf.Cache.RedisAddr != "" {
		rc, err := pdfengine.NewRedisCache(conf.Cache.RedisAddr, logger)
		if err != nil {
			logger.Warn("Redis geometry cache unavailable, using local cache only",
				zap.String("addr", conf.Cache.RedisAddr), zap.Error(err))
		} else {
			redisCache = rc
			geoCache = pdfengine.Tiered{Local: local, Remote: rc, BackfillTTL: conf.Cache.TTL}
			if err := hm.Register(health.NewPingChecker("geometry_cache", rc, false)); err != nil {
				logger.Warn("Failed to register cache health check", zap.Error(err))
			}
			logger.Info("Redis geometry cache enabled", zap.String("addr", conf.Cache.RedisAddr))
		}
	}

	scheduler := pdfengine.NewScheduler(pdfengine.Options{
		Cache:         geoCache,
		CacheTTL:      conf.Cache.TTL,
		RenderTimeout: conf.PDF.RenderTimeout,
		Logger:        logger,
	})
	loc := locator.New(scheduler, locatorSettings(conf), logger)
	renderer := render.New(newMatcher(conf), loc, logger)

	// ------------------------------------------------------------------
	// Optional document store for lookups by ID
	// ------------------------------------------------------------------
	var store *docstore.Store
	if conf.DocStore.Driver != "" {
		store, err = docstore.Open(docstore.Config{
			Driver:       conf.DocStore.Driver,
			DSN:          conf.DocStore.DSN,
			Table:        conf.DocStore.Table,
			MaxOpenConns: conf.DocStore.MaxOpenConns,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to open document store", zap.Error(err))
		}
		if err := hm.Register(health.NewPingChecker("docstore", store, true)); err != nil {
			logger.Warn("Failed to register docstore health check", zap.Error(err))
		}
	}

	limiter := httpapi.NewLimiter(conf.RateLimit.RPS, conf.RateLimit.Burst)
	opts := httpapi.Options{
		Limiter:      limiter,
		MaxBodyBytes: conf.Server.MaxBodyBytes,
		Logger:       logger,
	}
	if store != nil {
		opts.Docs = store
	}

	mux := http.NewServeMux()
	health.NewHTTPHandler(hm, logger).RegisterRoutes(mux)
	httpapi.NewCitationHandler(renderer, opts).RegisterRoutes(mux)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// ------------------------------------------------------------------
	// Hot reload of matcher, projector and rate-limit knobs
	// ------------------------------------------------------------------
	watcher, err := config.NewWatcher(cfgPath, logger)
	if err != nil {
		logger.Fatal("Failed to create config watcher", zap.Error(err))
	}
	watcher.OnChange(func(c *config.Config) {
		loc.Update(locatorSettings(c))
		renderer.UseMatcher(newMatcher(c))
		limiter.Update(c.RateLimit.RPS, c.RateLimit.Burst)
		logger.Info("Applied reloaded configuration",
			zap.Float64("viewport_scale", c.PDF.ViewportScale),
			zap.Int("min_quote_runes", c.PDF.MinQuoteRunes),
			zap.Bool("containment", c.Matcher.Containment),
			zap.Float64("rps", c.RateLimit.RPS))
	})
	if err := watcher.Start(); err != nil {
		logger.Warn("Config hot reload disabled", zap.Error(err))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", conf.Server.Port),
		Handler:      mux,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Citation service listening", zap.Int("port", conf.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down citation service", zap.Int("renders_in_flight", scheduler.InFlight()))

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := watcher.Stop(); err != nil {
		logger.Warn("Failed to stop config watcher", zap.Error(err))
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close document store", zap.Error(err))
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Warn("Failed to close Redis cache", zap.Error(err))
		}
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func locatorSettings(c *config.Config) locator.Settings {
	return locator.Settings{
		ViewportScale: c.PDF.ViewportScale,
		MinQuoteRunes: c.PDF.MinQuoteRunes,
	}
}

func newMatcher(c *config.Config) *source.Matcher {
	return source.NewMatcher(source.WithContainment(c.Matcher.Containment))
}
