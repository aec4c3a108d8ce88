// Package geo resolves place names against the bundled city list so a
// typed location can take the coordinate-anchored search path without an
// external geocoding service.
package geo

import (
	_ "embed"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var citiesYAML []byte

// City is one entry of the bundled dataset.
type City struct {
	Name   string  `yaml:"name" json:"name"`
	Region string  `yaml:"region" json:"region"`
	Lat    float64 `yaml:"lat" json:"lat"`
	Lng    float64 `yaml:"lng" json:"lng"`
}

// Point returns the city's location as an XY point (lng/lat order).
func (c City) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat})
}

// Index holds the loaded city list with a case-folded name lookup.
type Index struct {
	cities []City
	byName map[string]int
}

// Load parses the embedded dataset.
func Load() (*Index, error) {
	var cities []City
	if err := yaml.Unmarshal(citiesYAML, &cities); err != nil {
		return nil, eris.Wrap(err, "geo: parse city list")
	}

	idx := &Index{
		cities: cities,
		byName: make(map[string]int, len(cities)),
	}
	for i, c := range cities {
		idx.byName[foldKey(c.Name)] = i
	}
	return idx, nil
}

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Cities returns the full dataset.
func (idx *Index) Cities() []City {
	return slices.Clone(idx.cities)
}

// Lookup resolves a place name ("Austin", "austin, tx") to a city. The
// part after a comma is ignored; the dataset has one entry per city name.
func (idx *Index) Lookup(name string) (City, bool) {
	key := foldKey(name)
	if i, ok := idx.byName[key]; ok {
		return idx.cities[i], true
	}
	if city, _, found := strings.Cut(key, ","); found {
		if i, ok := idx.byName[strings.TrimSpace(city)]; ok {
			return idx.cities[i], true
		}
	}
	return City{}, false
}

// Nearest returns the city closest to the given coordinates and its
// distance in kilometers.
func (idx *Index) Nearest(lat, lng float64) (City, float64) {
	p := geom.NewPointFlat(geom.XY, []float64{lng, lat})

	best := -1
	bestKm := math.MaxFloat64
	for i, c := range idx.cities {
		if d := HaversineKm(p, c.Point()); d < bestKm {
			best, bestKm = i, d
		}
	}
	if best < 0 {
		return City{}, 0
	}
	return idx.cities[best], bestKm
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two XY points
// (lng/lat order) in kilometers.
func HaversineKm(a, b *geom.Point) float64 {
	lat1 := a.Y() * math.Pi / 180
	lat2 := b.Y() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.X() - a.X()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
