// Package feed builds the per-user JSON documents combining that user's
// weather, crypto, and stock snapshots. Absent domains are omitted keys,
// never null placeholders.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"postcardfetch/internal/catalog"
	"postcardfetch/internal/coingecko"
	"postcardfetch/internal/openmeteo"
	"postcardfetch/internal/rank"
	"postcardfetch/internal/stooq"
)

// timeFormat matches the site-wide generated-at stamp.
const timeFormat = "2006-01-02 15:04:05 UTC"

// Document is one user's JSON feed.
type Document struct {
	UpdatedAt string                 `json:"updated_at"`
	Weather   *openmeteo.Report      `json:"weather,omitempty"`
	Crypto    map[string]float64     `json:"crypto,omitempty"`
	BestMover *coingecko.Coin        `json:"best_mover,omitempty"`
	Stocks    map[string]stooq.Quote `json:"stocks,omitempty"`
	Todo      json.RawMessage        `json:"todo,omitempty"`
}

// Writer assembles and persists user feeds.
type Writer struct {
	weather  *openmeteo.Client
	crypto   *coingecko.Client
	stocks   *stooq.Client
	outDir   string
	todoPath string
	now      func() time.Time
	log      *slog.Logger
}

// NewWriter creates a feed writer. Feeds land in outDir, one file per
// username. todoPath may point at a missing file; the todo key is then
// simply omitted.
func NewWriter(weather *openmeteo.Client, crypto *coingecko.Client, stocks *stooq.Client, outDir, todoPath string, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		weather:  weather,
		crypto:   crypto,
		stocks:   stocks,
		outDir:   outDir,
		todoPath: todoPath,
		now:      time.Now,
		log:      log,
	}
}

// Build assembles the feed document for one user. Domain-level failures
// (geocode miss, empty price map) drop the domain key; they never fail the
// document.
func (w *Writer) Build(ctx context.Context, username string, cfg catalog.UserConfig) Document {
	doc := Document{UpdatedAt: w.now().UTC().Format(timeFormat)}

	if cfg.Weather != nil {
		if report, ok := w.userWeather(ctx, cfg.Weather); ok {
			doc.Weather = &report
		}
	}

	if cfg.Crypto != nil && len(cfg.Crypto.Coins) > 0 {
		prices := w.crypto.SimplePrices(ctx, cfg.Crypto.Coins, cfg.Crypto.VsCurrency)
		if len(prices) > 0 {
			doc.Crypto = prices
		}
		if best, ok := rank.BestMover(w.crypto.Prices(ctx, cfg.Crypto.Coins)); ok {
			doc.BestMover = &best
		}
	}

	if cfg.Stocks != nil && len(cfg.Stocks.Tickers) > 0 {
		quotes := w.stocks.Quotes(ctx, cfg.Stocks.Tickers)
		if len(quotes) > 0 {
			doc.Stocks = quotes
		}
	}

	if todo, ok := w.loadTodo(); ok {
		doc.Todo = todo
	}

	return doc
}

func (w *Writer) userWeather(ctx context.Context, prefs *catalog.WeatherPrefs) (openmeteo.Report, bool) {
	var lat, lon float64

	switch {
	case prefs.Latitude != nil && prefs.Longitude != nil:
		lat, lon = *prefs.Latitude, *prefs.Longitude
	case prefs.City != "":
		loc, err := w.weather.Geocode(ctx, prefs.City)
		if err != nil {
			w.log.Warn("user weather geocode failed", "city", prefs.City, "error", err)
			return openmeteo.Report{}, false
		}
		lat, lon = loc.Latitude, loc.Longitude
	default:
		return openmeteo.Report{}, false
	}

	return w.weather.Forecast(ctx, lat, lon, prefs.Units), true
}

func (w *Writer) loadTodo() (json.RawMessage, bool) {
	raw, err := os.ReadFile(w.todoPath)
	if err != nil {
		return nil, false
	}
	if !json.Valid(raw) {
		w.log.Warn("todo file is not valid JSON, omitting", "path", w.todoPath)
		return nil, false
	}
	return json.RawMessage(raw), true
}

// Write persists the document as dist/api/<username>.json.
func (w *Writer) Write(username string, doc Document) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("creating feed dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding feed for %s: %w", username, err)
	}

	path := filepath.Join(w.outDir, username+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing feed for %s: %w", username, err)
	}
	return nil
}
