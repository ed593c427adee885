package heatmap

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pariz/gountries"
	"gopkg.in/yaml.v3"
)

//go:embed coordinates.yaml
var defaultCoordinates []byte

// Location is a point on the map.
type Location struct {
	Lat     float64 `yaml:"lat" json:"lat"`
	Lng     float64 `yaml:"lng" json:"lng"`
	Country string  `yaml:"country" json:"country,omitempty"`
}

// LocationSource tells how a location was resolved.
type LocationSource string

const (
	SourceTable   LocationSource = "table"
	SourceCountry LocationSource = "country"
)

// CoordinateTable maps region or city names to locations. Lookups are case-insensitive.
type CoordinateTable struct {
	entries map[string]Location
}

// ParseCoordinateTable decodes a YAML mapping of name -> {lat, lng, country}.
func ParseCoordinateTable(data []byte) (*CoordinateTable, error) {
	raw := make(map[string]Location)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse coordinate table: %w", err)
	}

	t := &CoordinateTable{entries: make(map[string]Location, len(raw))}
	for name, loc := range raw {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return nil, fmt.Errorf("coordinate table entry %q out of range", name)
		}
		t.entries[tableKey(name)] = loc
	}
	return t, nil
}

// LoadCoordinateTable reads a coordinate table from disk.
// An empty path returns the built-in table.
func LoadCoordinateTable(path string) (*CoordinateTable, error) {
	if path == "" {
		return DefaultCoordinateTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coordinate table: %w", err)
	}
	return ParseCoordinateTable(data)
}

// DefaultCoordinateTable returns the table shipped with the binary.
func DefaultCoordinateTable() (*CoordinateTable, error) {
	return ParseCoordinateTable(defaultCoordinates)
}

// Lookup finds a location by name.
func (t *CoordinateTable) Lookup(name string) (Location, bool) {
	if t == nil {
		return Location{}, false
	}
	loc, ok := t.entries[tableKey(name)]
	return loc, ok
}

// Len returns the number of entries.
func (t *CoordinateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// countryAliases covers common names that are neither ISO codes nor official names.
var countryAliases = map[string]string{
	"uk":       "GBR",
	"england":  "GBR",
	"scotland": "GBR",
	"uae":      "ARE",
	"america":  "USA",
	"korea":    "KOR",
}

// Locator resolves a region to a location: the coordinate table first, then the
// centroid of its country.
type Locator struct {
	table     *CoordinateTable
	countries *gountries.Query
}

// NewLocator creates a locator. countries may be nil to disable the country fallback.
func NewLocator(table *CoordinateTable, countries *gountries.Query) *Locator {
	return &Locator{table: table, countries: countries}
}

// Locate resolves region within country.
func (l *Locator) Locate(region, country string) (Location, LocationSource, bool) {
	if loc, ok := l.table.Lookup(region); ok {
		if loc.Country == "" {
			loc.Country = country
		}
		return loc, SourceTable, true
	}
	if l.countries == nil || strings.TrimSpace(country) == "" {
		return Location{}, "", false
	}

	c, err := l.findCountry(country)
	if err != nil {
		return Location{}, "", false
	}
	return Location{
		Lat:     c.Coordinates.Latitude,
		Lng:     c.Coordinates.Longitude,
		Country: c.Name.Common,
	}, SourceCountry, true
}

func (l *Locator) findCountry(name string) (gountries.Country, error) {
	key := tableKey(name)
	if code, ok := countryAliases[key]; ok {
		return l.countries.FindCountryByAlpha(code)
	}
	if n := len(key); n == 2 || n == 3 {
		if c, err := l.countries.FindCountryByAlpha(strings.ToUpper(key)); err == nil {
			return c, nil
		}
	}
	return l.countries.FindCountryByName(key)
}
