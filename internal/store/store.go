// Package store persists search history and extracted leads.
package store

import (
	"context"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// SearchStatus tracks a recorded search run.
type SearchStatus string

const (
	StatusRunning  SearchStatus = "running"
	StatusComplete SearchStatus = "complete"
	StatusFailed   SearchStatus = "failed"
)

// SearchRecord is one recorded search run.
type SearchRecord struct {
	ID        string       `json:"id"`
	Keyword   string       `json:"keyword"`
	Location  string       `json:"location"`
	RadiusKm  float64      `json:"radius_km"`
	Lat       *float64     `json:"lat,omitempty"`
	Lng       *float64     `json:"lng,omitempty"`
	Status    SearchStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	LeadCount int          `json:"lead_count"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SearchFilter specifies criteria for listing search runs.
type SearchFilter struct {
	Keyword string       `json:"keyword,omitempty"`
	Status  SearchStatus `json:"status,omitempty"`
	Limit   int          `json:"limit,omitempty"`
	Offset  int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the search audit trail.
type Store interface {
	// Searches
	CreateSearch(ctx context.Context, q model.Query) (*SearchRecord, error)
	CompleteSearch(ctx context.Context, searchID string, leads []model.Lead) error
	FailSearch(ctx context.Context, searchID, errMsg string) error
	ListSearches(ctx context.Context, filter SearchFilter) ([]SearchRecord, error)

	// Leads
	LeadsBySearch(ctx context.Context, searchID string) ([]model.Lead, error)
	LeadsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
