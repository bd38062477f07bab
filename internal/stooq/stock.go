// Package stooq is the stock quote source adapter. The provider endpoint is
// single-symbol, so quotes are fetched one ticker at a time with the throttle
// pause in between; the configured chunk size only groups the outer loop.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"postcardfetch/internal/fetcher"
	"postcardfetch/internal/ratelimit"
)

// Quote is the normalized end-of-day stock record. A ticker whose response
// could not be parsed keeps an empty Quote in the result mapping.
type Quote struct {
	Symbol string   `json:"symbol,omitempty"`
	Date   string   `json:"date,omitempty"`
	Open   *float64 `json:"open,omitempty"`
	Close  *float64 `json:"close,omitempty"`
	Change *float64 `json:"change,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

// Client fetches end-of-day quotes from Stooq.
type Client struct {
	http      *resty.Client
	pacer     *ratelimit.Pacer
	chunkSize int
	log       *slog.Logger
}

// NewClient creates a stock quote client.
func NewClient(baseURL string, pacer *ratelimit.Pacer, chunkSize int, retryDelay time.Duration, log *slog.Logger) *Client {
	if chunkSize < 1 {
		chunkSize = 1
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

// Symbol maps a ticker to the provider's symbol form: lowercased, with a
// .us exchange suffix when none is present.
func Symbol(ticker string) string {
	s := strings.ToLower(strings.TrimSpace(ticker))
	if !strings.Contains(s, ".") {
		s += ".us"
	}
	return s
}

// Quotes fetches each ticker individually, pacing between calls. A ticker
// that fails to fetch or parse yields an empty record and the batch
// continues; the result always has one entry per requested ticker.
func (c *Client) Quotes(ctx context.Context, tickers []string) map[string]Quote {
	quotes := make(map[string]Quote, len(tickers))

	for start := 0; start < len(tickers); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(tickers) {
			end = len(tickers)
		}

		for _, ticker := range tickers[start:end] {
			quote, err := c.fetchQuote(ctx, ticker)
			if err != nil {
				c.log.Warn("stock quote fetch failed", "ticker", ticker, "error", err)
				quotes[ticker] = Quote{}
			} else {
				quotes[ticker] = quote
			}

			if err := c.pacer.Wait(ctx); err != nil {
				return quotes
			}
		}
	}

	return quotes
}

func (c *Client) fetchQuote(ctx context.Context, ticker string) (Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s": Symbol(ticker),
			"f": "sd2t2ohlcv",
			"h": "",
			"e": "csv",
		}).
		Get("")

	if cerr := fetcher.Classify(resp, err); cerr != nil {
		return Quote{}, cerr
	}

	quote, err := parseQuote(resp.String())
	if err != nil {
		return Quote{}, fetcher.NewMalformedError(fmt.Sprintf("parsing quote for %s", ticker), err)
	}
	return quote, nil
}

// parseQuote decodes the provider's two-line delimited record: a header row
// and a value row.
func parseQuote(body string) (Quote, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(body)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return Quote{}, err
	}
	if len(rows) < 2 {
		return Quote{}, fmt.Errorf("expected header and value rows, got %d rows", len(rows))
	}

	header, values := rows[0], rows[1]
	field := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(values) {
			field[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(values[i])
		}
	}

	closePrice, err := strconv.ParseFloat(field["close"], 64)
	if err != nil {
		return Quote{}, fmt.Errorf("close: %w", err)
	}
	openPrice, err := strconv.ParseFloat(field["open"], 64)
	if err != nil {
		return Quote{}, fmt.Errorf("open: %w", err)
	}

	change := closePrice - openPrice
	quote := Quote{
		Symbol: field["symbol"],
		Date:   field["date"],
		Open:   &openPrice,
		Close:  &closePrice,
		Change: &change,
	}
	if volume, err := strconv.ParseFloat(field["volume"], 64); err == nil {
		quote.Volume = &volume
	}

	return quote, nil
}
