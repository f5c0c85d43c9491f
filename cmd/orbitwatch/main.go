package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/orbit/orbitwatch/internal/api"
	"github.com/orbit/orbitwatch/internal/auth"
	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/fleet"
	"github.com/orbit/orbitwatch/internal/geomag"
	"github.com/orbit/orbitwatch/internal/metrics"
	"github.com/orbit/orbitwatch/internal/screening"
	"github.com/orbit/orbitwatch/internal/threat"
	"github.com/orbit/orbitwatch/internal/watch"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("ORBITWATCH_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	catCfg := loadCatalogConfig(logger)
	catStore := catalog.NewStore()
	catCache := catalog.NewCache(catCfg.CacheDir, catCfg.MaxFiles)

	// Attempt to load a cached catalog on startup so the first screening pass
	// doesn't depend on a network fetch.
	data, ts, err := catCache.LoadLatest()
	if err != nil {
		logger.Info("no catalog cache found, starting without debris data", "error", err)
	} else {
		elements, err := catalog.Parse(bytes.NewReader(data), logger)
		if err != nil {
			logger.Warn("failed to parse cached catalog data", "error", err)
		} else if len(elements) > 0 {
			catStore.Set(catalog.NewDataset("cache", ts, elements))
			metrics.SetCatalogElements(len(elements))
			logger.Info("loaded debris catalog from cache", "count", len(elements), "cached_at", ts.Format(time.RFC3339))
		}
	}

	screenCfg := loadScreeningConfig(logger)
	screener := screening.New(screenCfg, logger)

	threatCfg := loadThreatConfig(logger)

	registry := fleet.NewRegistry()
	snapshots := watch.NewStore()

	catFetcher := catalog.NewFetcher(catCfg.SourceURL)
	geoFetcher := geomag.NewFetcher(os.Getenv("ORBITWATCH_GEOMAG_URL"))

	interval := loadRefreshInterval(logger)
	refresher := watch.NewRefresher(registry, catStore, catFetcher, catCache, geoFetcher, screener, threatCfg, snapshots, interval, logger)

	srv := api.NewServer(addr, logger, authCfg, registry, catStore, snapshots, refresher)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go refresher.Run(ctx)

	// Background goroutine to update the catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := catStore.AgeSeconds()
				if age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ORBITWATCH_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ORBITWATCH_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ORBITWATCH_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ORBITWATCH_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

type catalogConfig struct {
	SourceURL string
	CacheDir  string
	MaxFiles  int
}

func loadCatalogConfig(logger *slog.Logger) catalogConfig {
	cfg := catalogConfig{
		CacheDir: "/tmp/orbitwatch/catalog",
		MaxFiles: 5,
	}

	if v := os.Getenv("ORBITWATCH_CATALOG_URL"); v != "" {
		cfg.SourceURL = v
	}
	if v := os.Getenv("ORBITWATCH_CATALOG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("ORBITWATCH_CATALOG_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITWATCH_CATALOG_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	logger.Info("catalog config", "source_url", cfg.SourceURL, "cache_dir", cfg.CacheDir)
	return cfg
}

func loadScreeningConfig(logger *slog.Logger) screening.Config {
	cfg := screening.DefaultConfig()

	if v := os.Getenv("ORBITWATCH_SCREEN_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITWATCH_SCREEN_HORIZON value, using default", "value", v, "default", 7200)
		} else {
			cfg.Horizon = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITWATCH_SCREEN_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITWATCH_SCREEN_STEP value, using default", "value", v, "default", 300)
		} else {
			cfg.Step = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITWATCH_SCREEN_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITWATCH_SCREEN_PARALLELISM value, using default", "value", v, "default", runtime.NumCPU())
		} else {
			cfg.Parallelism = n
		}
	}

	logger.Info("screening config",
		"horizon_seconds", cfg.Horizon.Seconds(),
		"step_seconds", cfg.Step.Seconds(),
		"parallelism", cfg.Parallelism,
	)
	return cfg
}

func loadThreatConfig(logger *slog.Logger) threat.Config {
	cfg := threat.DefaultConfig()

	// 500 is the accepted relaxed demo value; the severity tier boundaries
	// below deliberately do not scale with it.
	if v := os.Getenv("ORBITWATCH_THRESHOLD_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ORBITWATCH_THRESHOLD_KM value, using default", "value", v, "default", cfg.ThresholdKm)
		} else {
			cfg.ThresholdKm = f
		}
	}

	if v := os.Getenv("ORBITWATCH_STORM_KP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 9 {
			logger.Warn("invalid ORBITWATCH_STORM_KP value, using default", "value", v, "default", cfg.StormKp)
		} else {
			cfg.StormKp = f
		}
	}

	logger.Info("threat config",
		"threshold_km", cfg.ThresholdKm,
		"high_below_km", cfg.HighBelowKm,
		"medium_below_km", cfg.MediumBelowKm,
		"storm_kp", cfg.StormKp,
	)
	return cfg
}

func loadRefreshInterval(logger *slog.Logger) time.Duration {
	interval := 5 * time.Minute

	if v := os.Getenv("ORBITWATCH_REFRESH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITWATCH_REFRESH_INTERVAL value, using default", "value", v, "default", 300)
		} else {
			interval = time.Duration(n) * time.Second
		}
	}

	logger.Info("refresh interval", "seconds", interval.Seconds())
	return interval
}
