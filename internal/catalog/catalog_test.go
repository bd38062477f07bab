package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCities(t *testing.T) {
	csv := `name,slug,country,latitude,longitude
Lisbon,lisbon,Portugal,38.7223,-9.1393
Tokyo,tokyo,Japan,,
`
	path := writeFile(t, t.TempDir(), "cities.csv", csv)

	cities, err := LoadCities(path)
	if err != nil {
		t.Fatalf("LoadCities() returned unexpected error: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("len(cities) = %d, want 2", len(cities))
	}

	lisbon := cities[0]
	if lisbon.Name != "Lisbon" || lisbon.Slug != "lisbon" || lisbon.Country != "Portugal" {
		t.Errorf("lisbon = %+v", lisbon)
	}
	if lisbon.Latitude == nil || *lisbon.Latitude != 38.7223 {
		t.Errorf("lisbon.Latitude = %v, want 38.7223", lisbon.Latitude)
	}
	if lisbon.Longitude == nil || *lisbon.Longitude != -9.1393 {
		t.Errorf("lisbon.Longitude = %v, want -9.1393", lisbon.Longitude)
	}

	tokyo := cities[1]
	if tokyo.Latitude != nil || tokyo.Longitude != nil {
		t.Errorf("tokyo coordinates should be absent, got %+v", tokyo)
	}
}

func TestLoadCities_NoCoordinateColumns(t *testing.T) {
	csv := "name,slug,country\nParis,paris,France\n"
	path := writeFile(t, t.TempDir(), "cities.csv", csv)

	cities, err := LoadCities(path)
	if err != nil {
		t.Fatalf("LoadCities() returned unexpected error: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("len(cities) = %d, want 1", len(cities))
	}
	if cities[0].Latitude != nil {
		t.Error("Latitude should be absent without a latitude column")
	}
}

func TestLoadCities_CityColumnAlias(t *testing.T) {
	csv := "city,slug,country,latitude,longitude\nLima,lima,Peru,-12.0464,-77.0428\n"
	path := writeFile(t, t.TempDir(), "cities.csv", csv)

	cities, err := LoadCities(path)
	if err != nil {
		t.Fatalf("LoadCities() returned unexpected error: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("len(cities) = %d, want 1", len(cities))
	}
	if cities[0].Name != "Lima" {
		t.Errorf("Name = %q, want Lima (from the city column)", cities[0].Name)
	}
}

func TestLoadCities_MissingFile(t *testing.T) {
	if _, err := LoadCities(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("LoadCities() on a missing file should return an error")
	}
}

func TestLoadList(t *testing.T) {
	content := "bitcoin\n\n  ethereum  \ndogecoin\n\n"
	path := writeFile(t, t.TempDir(), "coins.txt", content)

	items, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList() returned unexpected error: %v", err)
	}

	want := []string{"bitcoin", "ethereum", "dogecoin"}
	if len(items) != len(want) {
		t.Fatalf("len(items) = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i] != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i], w)
		}
	}
}

func TestLoadUsers(t *testing.T) {
	yaml := `users:
  alice:
    weather:
      city: Lisbon
      units: celsius
    crypto:
      coins: [bitcoin, ethereum]
      vs_currency: eur
    stocks:
      tickers: [AAPL]
    transit:
      api_url: https://transit.example/feed
  bob:
    weather:
      latitude: 40.7128
      longitude: -74.006
`
	path := writeFile(t, t.TempDir(), "users.yaml", yaml)

	users, err := LoadUsers(path)
	if err != nil {
		t.Fatalf("LoadUsers() returned unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}

	alice := users["alice"]
	if alice.Weather == nil || alice.Weather.City != "Lisbon" || alice.Weather.Units != "celsius" {
		t.Errorf("alice.Weather = %+v", alice.Weather)
	}
	if alice.Crypto == nil || len(alice.Crypto.Coins) != 2 || alice.Crypto.VsCurrency != "eur" {
		t.Errorf("alice.Crypto = %+v", alice.Crypto)
	}
	if alice.Stocks == nil || len(alice.Stocks.Tickers) != 1 {
		t.Errorf("alice.Stocks = %+v", alice.Stocks)
	}
	if alice.Transit == nil || alice.Transit.APIURL != "https://transit.example/feed" {
		t.Errorf("alice.Transit = %+v", alice.Transit)
	}

	bob := users["bob"]
	if bob.Weather == nil || bob.Weather.Latitude == nil || *bob.Weather.Latitude != 40.7128 {
		t.Errorf("bob.Weather = %+v", bob.Weather)
	}
	if bob.Crypto != nil || bob.Stocks != nil || bob.Transit != nil {
		t.Errorf("bob should only carry a weather block: %+v", bob)
	}
}

func TestLoadUsers_EmptyDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.yaml", "")

	users, err := LoadUsers(path)
	if err != nil {
		t.Fatalf("LoadUsers() returned unexpected error: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("users = %v, want empty map", users)
	}
}

func TestLoad_FullSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cities.csv", "name,slug,country\nLisbon,lisbon,Portugal\n")
	writeFile(t, dir, "coins.txt", "bitcoin\n")
	writeFile(t, dir, "stocks.txt", "AAPL\n")
	writeFile(t, dir, "users.yaml", "users: {}\n")

	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if len(cat.Cities) != 1 || len(cat.Coins) != 1 || len(cat.Tickers) != 1 {
		t.Errorf("catalog counts = %d/%d/%d, want 1/1/1", len(cat.Cities), len(cat.Coins), len(cat.Tickers))
	}
}

func TestLoad_MissingCatalogIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cities.csv", "name,slug,country\n")
	// coins.txt deliberately absent

	if _, err := Load(dir); err == nil {
		t.Error("Load() with a missing catalog should return an error")
	}
}
