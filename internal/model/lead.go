// Package model defines the lead records and search parameters shared
// across leadscout.
package model

// Sentinel values used when the model's table omits a cell.
const (
	SentinelNA   = "N/A"
	SentinelNone = "None"
	SentinelLink = "#"
)

// Lead is one extracted business record. Leads are immutable once
// constructed; callers accumulate them in a LeadSet rather than mutating.
type Lead struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"business_name"`
	PhoneNumber  string  `json:"phone_number"`
	Address      string  `json:"address,omitempty"`
	Rank         int     `json:"rank"`
	Website      string  `json:"website"`
	LocationLink string  `json:"location_link"`
	Rating       float64 `json:"rating"`
	Distance     string  `json:"distance,omitempty"`
	Keyword      string  `json:"keyword"`
}

// Coords is a precise latitude/longitude anchor for a search. When set,
// the grounded model is pinned to the point instead of a place name, which
// materially improves the distance figures in its reply.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Query holds the parameters of a single prospect search.
type Query struct {
	Keyword  string  `json:"keyword"`
	Location string  `json:"location"`
	RadiusKm float64 `json:"radius_km"`
	Coords   *Coords `json:"coords,omitempty"`

	// RankOffset is the fallback rank base for rows whose stated rank
	// cannot be parsed. A search targeting ranks 6-30 uses 6 so such rows
	// still land in the requested band.
	RankOffset int `json:"rank_offset,omitempty"`
}
