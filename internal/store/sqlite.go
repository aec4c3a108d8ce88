package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	keyword    TEXT NOT NULL,
	location   TEXT NOT NULL,
	radius_km  REAL NOT NULL,
	lat        REAL,
	lng        REAL,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	lead_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	rating        REAL NOT NULL,
	distance      TEXT,
	keyword       TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_searches_keyword ON searches(keyword);
CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_leads_search_id ON leads(search_id);
CREATE INDEX IF NOT EXISTS idx_leads_keyword ON leads(keyword);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, q model.Query) (*SearchRecord, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, keyword, location, radius_km, lat, lng, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Keyword, rec.Location, rec.RadiusKm, rec.Lat, rec.Lng, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create search")
	}
	return rec, nil
}

func (s *SQLiteStore) CompleteSearch(ctx context.Context, searchID string, leads []model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, l := range leads {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leads (id, search_id, business_name, phone_number, address, rank, website, location_link, rating, distance, keyword, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, searchID, l.BusinessName, l.PhoneNumber, l.Address, l.Rank, l.Website, l.LocationLink, l.Rating, l.Distance, l.Keyword, now,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert lead")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE searches SET status = ?, lead_count = ?, updated_at = ? WHERE id = ?`,
		StatusComplete, len(leads), now, searchID,
	); err != nil {
		return eris.Wrap(err, "sqlite: complete search")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) FailSearch(ctx context.Context, searchID, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE searches SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, errMsg, time.Now().UTC(), searchID,
	)
	return eris.Wrap(err, "sqlite: fail search")
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]SearchRecord, error) {
	query := `SELECT id, keyword, location, radius_km, lat, lng, status, COALESCE(error, ''), lead_count, created_at, updated_at FROM searches WHERE 1=1`
	var args []any
	if filter.Keyword != "" {
		query += ` AND keyword = ?`
		args = append(args, filter.Keyword)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var recs []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Keyword, &rec.Location, &rec.RadiusKm, &rec.Lat, &rec.Lng, &rec.Status, &rec.Error, &rec.LeadCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate searches")
}

const sqliteLeadColumns = `id, business_name, phone_number, COALESCE(address, ''), rank, website, location_link, rating, COALESCE(distance, ''), keyword`

func (s *SQLiteStore) LeadsBySearch(ctx context.Context, searchID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE search_id = ? ORDER BY rank`, searchID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by search")
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (s *SQLiteStore) LeadsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE keyword = ? ORDER BY created_at DESC, rank LIMIT ?`, keyword, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by keyword")
	}
	defer rows.Close()
	return scanLeads(rows)
}

func scanLeads(rows *sql.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.BusinessName, &l.PhoneNumber, &l.Address, &l.Rank, &l.Website, &l.LocationLink, &l.Rating, &l.Distance, &l.Keyword); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}
