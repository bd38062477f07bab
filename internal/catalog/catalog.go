// Package catalog loads the build work lists: the city table, the coin and
// ticker lists, and the per-user preference map. Catalog order is
// significant, it drives shard assignment.
package catalog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// City is one row of the city catalog. Latitude and longitude are optional;
// cities without coordinates are geocoded at build time.
type City struct {
	Name      string
	Slug      string
	Country   string
	Latitude  *float64
	Longitude *float64
}

// WeatherPrefs selects a weather location for a user, either by explicit
// coordinates or by city name.
type WeatherPrefs struct {
	City      string   `yaml:"city"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Units     string   `yaml:"units"`
}

// CryptoPrefs selects coins and a quote currency for a user.
type CryptoPrefs struct {
	Coins      []string `yaml:"coins"`
	VsCurrency string   `yaml:"vs_currency"`
}

// StockPrefs selects tickers for a user.
type StockPrefs struct {
	Tickers []string `yaml:"tickers"`
}

// TransitPrefs carries an external transit feed URL. The data core only
// passes it through; the rendering side consumes it.
type TransitPrefs struct {
	APIURL string `yaml:"api_url"`
}

// UserConfig is one user's per-domain preference set. Nil blocks mean the
// domain is absent for that user.
type UserConfig struct {
	Weather *WeatherPrefs `yaml:"weather"`
	Crypto  *CryptoPrefs  `yaml:"crypto"`
	Stocks  *StockPrefs   `yaml:"stocks"`
	Transit *TransitPrefs `yaml:"transit"`
}

// Catalog bundles all work lists for one build.
type Catalog struct {
	Cities  []City
	Coins   []string
	Tickers []string
	Users   map[string]UserConfig
}

// Load reads every catalog from dataDir. Any failure here is fatal to the
// build; there is no degraded mode without work lists.
func Load(dataDir string) (*Catalog, error) {
	cities, err := LoadCities(filepath.Join(dataDir, "cities.csv"))
	if err != nil {
		return nil, fmt.Errorf("loading cities: %w", err)
	}

	coins, err := LoadList(filepath.Join(dataDir, "coins.txt"))
	if err != nil {
		return nil, fmt.Errorf("loading coins: %w", err)
	}

	tickers, err := LoadList(filepath.Join(dataDir, "stocks.txt"))
	if err != nil {
		return nil, fmt.Errorf("loading stocks: %w", err)
	}

	users, err := LoadUsers(filepath.Join(dataDir, "users.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	return &Catalog{
		Cities:  cities,
		Coins:   coins,
		Tickers: tickers,
		Users:   users,
	}, nil
}

// LoadCities reads the city table from a CSV file with a header row.
// Recognized columns: name (city is accepted as an alias), slug, country,
// latitude, longitude.
func LoadCities(path string) ([]City, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var cities []City
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		city := City{
			Name:    field(row, "name"),
			Slug:    field(row, "slug"),
			Country: field(row, "country"),
		}
		if city.Name == "" {
			city.Name = field(row, "city")
		}
		if lat, err := strconv.ParseFloat(field(row, "latitude"), 64); err == nil {
			city.Latitude = &lat
		}
		if lon, err := strconv.ParseFloat(field(row, "longitude"), 64); err == nil {
			city.Longitude = &lon
		}
		cities = append(cities, city)
	}

	return cities, nil
}

// LoadList reads one identifier per line, skipping blanks and surrounding
// whitespace. Used for both the coin and ticker catalogs.
func LoadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// LoadUsers reads the user preference map from a YAML document of the shape
// {users: {<username>: {...}}}.
func LoadUsers(path string) (map[string]UserConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Users map[string]UserConfig `yaml:"users"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing users: %w", err)
	}
	if doc.Users == nil {
		doc.Users = map[string]UserConfig{}
	}

	return doc.Users, nil
}
