// Package openmeteo is the weather source adapter: geocoding plus current
// and daily forecast, normalized into a fixed-field record. Forecast results
// are persisted to the weather cache so a provider outage degrades to stale
// data instead of an empty page.
package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"postcardfetch/internal/fetcher"
	"postcardfetch/internal/wcache"
)

// UnavailableSummary is the fixed summary of the terminal placeholder record.
const UnavailableSummary = "data unavailable"

// Report is the normalized weather record. Every numeric field is optional;
// absence is a renderable state, not an error.
type Report struct {
	CurrentTemp  *float64  `json:"current_temp,omitempty"`
	HighTemp     *float64  `json:"high_temp,omitempty"`
	LowTemp      *float64  `json:"low_temp,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty"`
	WindSpeed    *float64  `json:"wind_speed,omitempty"`
	PrecipChance *float64  `json:"precip_chance,omitempty"`
	Summary      string    `json:"summary"`
	Stale        bool      `json:"stale"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Unavailable returns the placeholder record used when neither a live fetch
// nor a cached entry is available. This is a defined terminal state.
func Unavailable() Report {
	return Report{Summary: UnavailableSummary}
}

// Location is one geocoding result.
type Location struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		TempMax    []float64 `json:"temperature_2m_max"`
		TempMin    []float64 `json:"temperature_2m_min"`
		PrecipProb []float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Client fetches weather data from Open-Meteo.
type Client struct {
	geocode    *resty.Client
	forecast   *resty.Client
	cache      *wcache.Cache
	retryDelay time.Duration
	sleep      func(time.Duration)
	now        func() time.Time
	log        *slog.Logger
}

// NewClient creates a weather client. The cache may be nil, in which case
// every forecast is a live fetch with no fallback.
func NewClient(geocodeURL, forecastURL string, cache *wcache.Cache, retryDelay time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		geocode:    fetcher.NewClient(geocodeURL, retryDelay),
		forecast:   fetcher.NewClient(forecastURL, retryDelay),
		cache:      cache,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
		now:        time.Now,
		log:        log,
	}
}

// Geocode resolves a place name to coordinates, taking the first result
// only. An empty result set is a not_found error, never a fatal condition.
func (c *Client) Geocode(ctx context.Context, name string) (*Location, error) {
	var result geocodeResponse

	resp, err := c.geocode.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":     name,
			"count":    "1",
			"language": "en",
			"format":   "json",
		}).
		SetResult(&result).
		Get("")

	if cerr := fetcher.Classify(resp, err); cerr != nil {
		return nil, fmt.Errorf("geocoding %q: %w", name, cerr)
	}

	if len(result.Results) == 0 {
		return nil, fetcher.NewNotFoundError(fmt.Sprintf("no geocoding results for %q", name))
	}

	first := result.Results[0]
	return &Location{
		Name:      first.Name,
		Country:   first.Country,
		Latitude:  first.Latitude,
		Longitude: first.Longitude,
	}, nil
}

// Forecast returns the normalized weather record for a coordinate pair.
// Fallback ladder: live fetch (two attempts separated by the retry delay,
// each with its own transport-level retry), then the cached entry with its
// staleness flag, then the all-absent placeholder.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, units string) Report {
	var cached Report
	var haveCached bool
	var cachedStale bool

	if c.cache != nil {
		stale, err := c.cache.Load(lat, lon, &cached)
		if err == nil {
			haveCached = true
			cachedStale = stale
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.sleep(c.retryDelay)
		}

		report, err := c.fetchForecast(ctx, lat, lon, units)
		if err != nil {
			c.log.Warn("forecast fetch failed",
				"lat", lat, "lon", lon,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		if c.cache != nil {
			if err := c.cache.Save(lat, lon, report); err != nil {
				c.log.Warn("cache save failed", "lat", lat, "lon", lon, "error", err)
			}
		}
		return report
	}

	if haveCached {
		cached.Stale = cachedStale
		return cached
	}

	return Unavailable()
}

func (c *Client) fetchForecast(ctx context.Context, lat, lon float64, units string) (Report, error) {
	tempUnit := "celsius"
	if units == "fahrenheit" {
		tempUnit = "fahrenheit"
	}

	var result forecastResponse
	resp, err := c.forecast.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":         fmt.Sprintf("%.4f", lat),
			"longitude":        fmt.Sprintf("%.4f", lon),
			"current":          "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code",
			"daily":            "temperature_2m_max,temperature_2m_min,precipitation_probability_max",
			"temperature_unit": tempUnit,
			"wind_speed_unit":  "mph",
			"timezone":         "auto",
		}).
		SetResult(&result).
		Get("")

	if cerr := fetcher.Classify(resp, err); cerr != nil {
		return Report{}, cerr
	}

	return c.normalize(result), nil
}

func (c *Client) normalize(resp forecastResponse) Report {
	report := Report{
		CurrentTemp: resp.Current.Temperature,
		Humidity:    resp.Current.Humidity,
		WindSpeed:   resp.Current.WindSpeed,
		FetchedAt:   c.now().UTC(),
	}
	if len(resp.Daily.TempMax) > 0 {
		high := resp.Daily.TempMax[0]
		report.HighTemp = &high
	}
	if len(resp.Daily.TempMin) > 0 {
		low := resp.Daily.TempMin[0]
		report.LowTemp = &low
	}
	if len(resp.Daily.PrecipProb) > 0 {
		prob := resp.Daily.PrecipProb[0]
		report.PrecipChance = &prob
	}
	report.Summary = Summary(report.HighTemp, report.LowTemp, report.PrecipChance)
	return report
}

// Summary builds the human-readable clause: high/low combined into one
// clause, a rain clause only above 0% probability, "Clear conditions" when
// neither applies.
func Summary(high, low, precip *float64) string {
	var clauses []string
	if high != nil && low != nil {
		clauses = append(clauses, fmt.Sprintf("High %.0f°, low %.0f°", *high, *low))
	}
	if precip != nil && *precip > 0 {
		clauses = append(clauses, fmt.Sprintf("%.0f%% chance of rain", *precip))
	}
	if len(clauses) == 0 {
		return "Clear conditions"
	}
	return strings.Join(clauses, ". ")
}
