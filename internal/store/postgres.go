package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store backed by a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the database at the given URL.
func NewPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	keyword    TEXT NOT NULL,
	location   TEXT NOT NULL,
	radius_km  DOUBLE PRECISION NOT NULL,
	lat        DOUBLE PRECISION,
	lng        DOUBLE PRECISION,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	lead_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	search_id     TEXT NOT NULL REFERENCES searches(id),
	business_name TEXT NOT NULL,
	phone_number  TEXT NOT NULL,
	address       TEXT,
	rank          INTEGER NOT NULL,
	website       TEXT NOT NULL,
	location_link TEXT NOT NULL,
	rating        DOUBLE PRECISION NOT NULL,
	distance      TEXT,
	keyword       TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_keyword ON searches(keyword);
CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_leads_search_id ON leads(search_id);
CREATE INDEX IF NOT EXISTS idx_leads_keyword ON leads(keyword);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, q model.Query) (*SearchRecord, error) {
	now := time.Now().UTC()
	rec := &SearchRecord{
		ID:        uuid.NewString(),
		Keyword:   q.Keyword,
		Location:  q.Location,
		RadiusKm:  q.RadiusKm,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if q.Coords != nil {
		lat, lng := q.Coords.Lat, q.Coords.Lng
		rec.Lat, rec.Lng = &lat, &lng
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, keyword, location, radius_km, lat, lng, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Keyword, rec.Location, rec.RadiusKm, rec.Lat, rec.Lng, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create search")
	}
	return rec, nil
}

func (s *PostgresStore) CompleteSearch(ctx context.Context, searchID string, leads []model.Lead) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, l := range leads {
		if _, err := tx.Exec(ctx,
			`INSERT INTO leads (id, search_id, business_name, phone_number, address, rank, website, location_link, rating, distance, keyword, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			l.ID, searchID, l.BusinessName, l.PhoneNumber, l.Address, l.Rank, l.Website, l.LocationLink, l.Rating, l.Distance, l.Keyword, now,
		); err != nil {
			return eris.Wrap(err, "postgres: insert lead")
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE searches SET status = $1, lead_count = $2, updated_at = $3 WHERE id = $4`,
		StatusComplete, len(leads), now, searchID,
	); err != nil {
		return eris.Wrap(err, "postgres: complete search")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (s *PostgresStore) FailSearch(ctx context.Context, searchID, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE searches SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		StatusFailed, errMsg, time.Now().UTC(), searchID,
	)
	return eris.Wrap(err, "postgres: fail search")
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter SearchFilter) ([]SearchRecord, error) {
	query := `SELECT id, keyword, location, radius_km, lat, lng, status, COALESCE(error, ''), lead_count, created_at, updated_at FROM searches WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Keyword != "" {
		query += ` AND keyword = ` + arg(filter.Keyword)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var recs []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Keyword, &rec.Location, &rec.RadiusKm, &rec.Lat, &rec.Lng, &rec.Status, &rec.Error, &rec.LeadCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate searches")
}

const postgresLeadColumns = `id, business_name, phone_number, COALESCE(address, ''), rank, website, location_link, rating, COALESCE(distance, ''), keyword`

func (s *PostgresStore) LeadsBySearch(ctx context.Context, searchID string) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresLeadColumns+` FROM leads WHERE search_id = $1 ORDER BY rank`, searchID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by search")
	}
	defer rows.Close()
	return scanPgxLeads(rows)
}

func (s *PostgresStore) LeadsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresLeadColumns+` FROM leads WHERE keyword = $1 ORDER BY created_at DESC, rank LIMIT $2`, keyword, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by keyword")
	}
	defer rows.Close()
	return scanPgxLeads(rows)
}

func scanPgxLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.BusinessName, &l.PhoneNumber, &l.Address, &l.Rank, &l.Website, &l.LocationLink, &l.Rating, &l.Distance, &l.Keyword); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}
