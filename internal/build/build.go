// Package build is the top-level driver for one build invocation. It gates
// each domain on its shard slot, runs the source adapters sequentially with
// the throttle pacer between work units, and hands the resulting record
// mappings to the rendering collaborator.
package build

import (
	"context"
	"fmt"
	"log/slog"

	"postcardfetch/internal/catalog"
	"postcardfetch/internal/coingecko"
	"postcardfetch/internal/config"
	"postcardfetch/internal/feed"
	"postcardfetch/internal/openmeteo"
	"postcardfetch/internal/rank"
	"postcardfetch/internal/ratelimit"
	"postcardfetch/internal/shard"
	"postcardfetch/internal/stooq"
)

// topMoversN is how many gainers and losers the crypto summary carries.
const topMoversN = 5

// Renderer consumes the normalized record mappings the core produces. Page
// generation lives outside this module; the default renderer only reports
// counts.
type Renderer interface {
	RenderCities(cities []catalog.City, weather map[string]openmeteo.Report) error
	RenderCrypto(coins []string, prices map[string]coingecko.Coin, movers rank.Movers) error
	RenderStocks(tickers []string, quotes map[string]stooq.Quote) error
}

// LogRenderer is the default Renderer: it logs what would be rendered.
type LogRenderer struct {
	Log *slog.Logger
}

func (r LogRenderer) RenderCities(cities []catalog.City, weather map[string]openmeteo.Report) error {
	r.Log.Info("city records ready", "cities", len(cities), "records", len(weather))
	return nil
}

func (r LogRenderer) RenderCrypto(coins []string, prices map[string]coingecko.Coin, movers rank.Movers) error {
	r.Log.Info("crypto records ready",
		"coins", len(coins),
		"priced", len(prices),
		"gainers", len(movers.Gainers),
		"losers", len(movers.Losers))
	return nil
}

func (r LogRenderer) RenderStocks(tickers []string, quotes map[string]stooq.Quote) error {
	r.Log.Info("stock records ready", "tickers", len(tickers), "quotes", len(quotes))
	return nil
}

// Builder runs one sharded build invocation.
type Builder struct {
	cfg      *config.Config
	weather  *openmeteo.Client
	crypto   *coingecko.Client
	stocks   *stooq.Client
	feeds    *feed.Writer
	pacer    *ratelimit.Pacer
	renderer Renderer
	log      *slog.Logger
}

// New wires a Builder from its collaborators. A nil renderer falls back to
// the logging renderer.
func New(cfg *config.Config, weather *openmeteo.Client, crypto *coingecko.Client, stocks *stooq.Client, feeds *feed.Writer, pacer *ratelimit.Pacer, renderer Renderer, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if renderer == nil {
		renderer = LogRenderer{Log: log}
	}
	return &Builder{
		cfg:      cfg,
		weather:  weather,
		crypto:   crypto,
		stocks:   stocks,
		feeds:    feeds,
		pacer:    pacer,
		renderer: renderer,
		log:      log,
	}
}

// Run executes every domain owned by the current shard, sequentially.
// It stops early only on context cancellation.
func (b *Builder) Run(ctx context.Context, cat *catalog.Catalog) error {
	b.log.Info("starting build",
		"shard_index", b.cfg.ShardIndex,
		"shard_total", b.cfg.ShardTotal)

	type domain struct {
		slot int
		name string
		run  func(context.Context, *catalog.Catalog) error
	}

	domains := []domain{
		{shard.SlotCities, "cities", b.buildCities},
		{shard.SlotCrypto, "crypto", b.buildCrypto},
		{shard.SlotStocks, "stocks", b.buildStocks},
		{shard.SlotUsers, "users", b.buildUsers},
	}

	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !shard.ShouldBuild(d.slot, b.cfg.ShardTotal, b.cfg.ShardIndex) {
			continue
		}
		b.log.Info("building domain", "domain", d.name)
		if err := d.run(ctx, cat); err != nil {
			return fmt.Errorf("building %s: %w", d.name, err)
		}
	}

	b.log.Info("build complete")
	return nil
}

// buildCities re-shards the city list across the configured shard total by
// catalog position, then fetches weather per owned city.
func (b *Builder) buildCities(ctx context.Context, cat *catalog.Catalog) error {
	records := make(map[string]openmeteo.Report)
	var owned []catalog.City

	for i, city := range cat.Cities {
		if !shard.ShouldBuild(i, b.cfg.ShardTotal, b.cfg.ShardIndex) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		owned = append(owned, city)

		if lat, lon, ok := b.cityCoordinates(ctx, city); ok {
			records[city.Slug] = b.weather.Forecast(ctx, lat, lon, "")
		} else {
			records[city.Slug] = openmeteo.Unavailable()
		}

		// A failed geocode still issued a fetch; the pause applies to every
		// owned city regardless of outcome.
		if err := b.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	return b.renderer.RenderCities(owned, records)
}

// cityCoordinates resolves a city's coordinates from the catalog or via
// geocoding. A geocode miss downgrades the city to the placeholder record.
func (b *Builder) cityCoordinates(ctx context.Context, city catalog.City) (float64, float64, bool) {
	if city.Latitude != nil && city.Longitude != nil {
		return *city.Latitude, *city.Longitude, true
	}

	query := city.Name
	if city.Country != "" {
		query = fmt.Sprintf("%s, %s", city.Name, city.Country)
	}

	loc, err := b.weather.Geocode(ctx, query)
	if err != nil {
		b.log.Warn("geocode failed", "city", city.Name, "error", err)
		return 0, 0, false
	}
	return loc.Latitude, loc.Longitude, true
}

func (b *Builder) buildCrypto(ctx context.Context, cat *catalog.Catalog) error {
	prices := b.crypto.Prices(ctx, cat.Coins)
	if err := ctx.Err(); err != nil {
		return err
	}
	movers := rank.TopMovers(prices, topMoversN)
	return b.renderer.RenderCrypto(cat.Coins, prices, movers)
}

func (b *Builder) buildStocks(ctx context.Context, cat *catalog.Catalog) error {
	quotes := b.stocks.Quotes(ctx, cat.Tickers)
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.renderer.RenderStocks(cat.Tickers, quotes)
}

func (b *Builder) buildUsers(ctx context.Context, cat *catalog.Catalog) error {
	for username, userCfg := range cat.Users {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc := b.feeds.Build(ctx, username, userCfg)
		if err := b.feeds.Write(username, doc); err != nil {
			b.log.Warn("feed write failed", "user", username, "error", err)
		}

		if err := b.pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
