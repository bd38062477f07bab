// Package coingecko is the crypto market source adapter. Listings are
// fetched in chunks against the markets endpoint and normalized; a failed
// chunk shrinks the result mapping instead of failing the batch.
package coingecko

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"postcardfetch/internal/fetcher"
	"postcardfetch/internal/ratelimit"
)

// MaxChunk is the provider maximum number of ids per markets call.
const MaxChunk = 250

// Coin is the normalized crypto record. Change percentages and rank are
// nullable upstream and stay optional here.
type Coin struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	PriceUSD  float64  `json:"usd"`
	MarketCap *float64 `json:"market_cap,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
	Change7d  *float64 `json:"change_7d,omitempty"`
	Rank      *int     `json:"rank,omitempty"`
}

type marketsRow struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     *float64 `json:"current_price"`
	MarketCap *float64 `json:"market_cap"`
	Rank      *int     `json:"market_cap_rank"`
	Change24h *float64 `json:"price_change_percentage_24h"`
	Change7d  *float64 `json:"price_change_percentage_7d_in_currency"`
}

// Client fetches market data from CoinGecko.
type Client struct {
	http      *resty.Client
	pacer     *ratelimit.Pacer
	chunkSize int
	log       *slog.Logger
}

// NewClient creates a crypto market client. chunkSize is clamped to the
// provider maximum.
func NewClient(baseURL string, pacer *ratelimit.Pacer, chunkSize int, retryDelay time.Duration, log *slog.Logger) *Client {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if chunkSize > MaxChunk {
		chunkSize = MaxChunk
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:      fetcher.NewClient(baseURL, retryDelay),
		pacer:     pacer,
		chunkSize: chunkSize,
		log:       log,
	}
}

// Prices fetches normalized records for ids, chunked, each chunk followed by
// a pacer wait. Coins without a positive price are filtered out: a zero or
// absent price is "no data", not $0.00. Partial results are normal; a failed
// chunk only drops its own coins.
func (c *Client) Prices(ctx context.Context, ids []string) map[string]Coin {
	coins := make(map[string]Coin, len(ids))

	for start := 0; start < len(ids); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		rows, err := c.fetchMarkets(ctx, chunk)
		if err != nil {
			c.log.Warn("crypto chunk fetch failed",
				"chunk_start", start,
				"chunk_len", len(chunk),
				"error", err)
		} else {
			for _, row := range rows {
				if row.Price == nil || *row.Price <= 0 {
					continue
				}
				coins[row.ID] = Coin{
					ID:        row.ID,
					Symbol:    row.Symbol,
					Name:      row.Name,
					PriceUSD:  *row.Price,
					MarketCap: row.MarketCap,
					Change24h: row.Change24h,
					Change7d:  row.Change7d,
					Rank:      row.Rank,
				}
			}
		}

		if err := c.pacer.Wait(ctx); err != nil {
			break
		}
	}

	return coins
}

func (c *Client) fetchMarkets(ctx context.Context, ids []string) ([]marketsRow, error) {
	var rows []marketsRow

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency":             "usd",
			"ids":                     strings.Join(ids, ","),
			"price_change_percentage": "7d",
			"per_page":                "250",
		}).
		SetResult(&rows).
		Get("/coins/markets")

	if cerr := fetcher.Classify(resp, err); cerr != nil {
		return nil, cerr
	}
	return rows, nil
}

// SimplePrices fetches bare prices for ids in vsCurrency, chunked like
// Prices. Used for the per-user feeds where the quote currency is a
// preference. Zero and absent prices are filtered the same way.
func (c *Client) SimplePrices(ctx context.Context, ids []string, vsCurrency string) map[string]float64 {
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))
	if vs == "" {
		vs = "usd"
	}

	prices := make(map[string]float64, len(ids))

	for start := 0; start < len(ids); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var result map[string]map[string]float64
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ids":           strings.Join(chunk, ","),
				"vs_currencies": vs,
			}).
			SetResult(&result).
			Get("/simple/price")

		if cerr := fetcher.Classify(resp, err); cerr != nil {
			c.log.Warn("simple price chunk fetch failed", "chunk_start", start, "error", cerr)
		} else {
			for id, quotes := range result {
				if price, ok := quotes[vs]; ok && price > 0 {
					prices[id] = price
				}
			}
		}

		if err := c.pacer.Wait(ctx); err != nil {
			break
		}
	}

	return prices
}
