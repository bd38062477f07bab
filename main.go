package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"postcardfetch/internal/build"
	"postcardfetch/internal/catalog"
	"postcardfetch/internal/coingecko"
	"postcardfetch/internal/config"
	"postcardfetch/internal/feed"
	"postcardfetch/internal/openmeteo"
	"postcardfetch/internal/ratelimit"
	"postcardfetch/internal/stooq"
	"postcardfetch/internal/wcache"
)

// Exit codes: 0 success, 1 build failure, 130 interrupted.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		return exitFailure
	}

	// Interrupt signals terminate cleanly with a distinct exit code.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Base catalogs are the one fatal dependency of a build.
	cat, err := catalog.Load(cfg.DataDir)
	if err != nil {
		log.Error("failed to load catalogs", "data_dir", cfg.DataDir, "error", err)
		return exitFailure
	}

	cache, err := wcache.New(cfg.CacheDir, nil)
	if err != nil {
		log.Error("failed to open weather cache", "cache_dir", cfg.CacheDir, "error", err)
		return exitFailure
	}

	pacer := ratelimit.New(cfg.Throttle())
	weather := openmeteo.NewClient(cfg.GeocodingBaseURL, cfg.ForecastBaseURL, cache, cfg.RetryDelay(), log)
	crypto := coingecko.NewClient(cfg.CoinGeckoBaseURL, pacer, cfg.ChunkSizeCrypto, cfg.RetryDelay(), log)
	stocks := stooq.NewClient(cfg.StooqBaseURL, pacer, cfg.ChunkSizeStocks, cfg.RetryDelay(), log)

	feeds := feed.NewWriter(
		weather, crypto, stocks,
		filepath.Join(cfg.DistDir, "api"),
		filepath.Join(cfg.DataDir, "todo.json"),
		log,
	)

	builder := build.New(cfg, weather, crypto, stocks, feeds, pacer, nil, log)

	if err := builder.Run(ctx, cat); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("build interrupted")
			return exitInterrupted
		}
		log.Error("build failed", "error", err)
		return exitFailure
	}

	return exitOK
}
