// Package postgres reads detections and whitelist entries from the hosted
// Supabase Postgres database. The schema is owned by the hosted project; this
// package never creates or migrates tables.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ repository.Repository = (*Repository)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/postgres?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Repository implements repository.Repository on Postgres
type Repository struct {
	db *sql.DB
}

// New opens the database at dsn (falls back to defaultDSN) and verifies the
// connection.
func New(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = defaultDSN
	}

	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Repository{db: db}, nil
}

// ListDetections returns up to limit rows of "espData" with no ordering beyond
// what the database returns.
func (r *Repository) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	if limit <= 0 {
		limit = repository.DefaultBatchSize
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, anchor_id, ssid, rssi, block_number, mac
		FROM "espData" LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	detections := make([]domain.Detection, 0, limit)
	for rows.Next() {
		var (
			d              domain.Detection
			anchor         sql.NullString
			ssid, mac      sql.NullString
			rssi, blockNum sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &anchor, &ssid, &rssi, &blockNum, &mac); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		d.AnchorID = anchor.String
		d.SSID = ssid.String
		d.MAC = mac.String
		d.RSSI = int(rssi.Int64)
		d.Block = int(blockNum.Int64)
		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return detections, nil
}

// InsertDetection writes a detection row and sets its ID
func (r *Repository) InsertDetection(ctx context.Context, d *domain.Detection) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO "espData" (anchor_id, ssid, rssi, block_number, mac)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.AnchorID, nullable(d.SSID), d.RSSI, d.Block, nullable(d.MAC)).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// ListWhitelist returns every whitelist entry
func (r *Repository) ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, mac, created_at FROM whitelist`)
	if err != nil {
		return nil, fmt.Errorf("select whitelist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.WhitelistEntry
	for rows.Next() {
		var (
			e       domain.WhitelistEntry
			mac     sql.NullString
			created sql.NullTime
		)
		if err := rows.Scan(&e.ID, &mac, &created); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		e.MAC = mac.String
		if created.Valid {
			e.CreatedAt = created.Time
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whitelist: %w", err)
	}
	return entries, nil
}

// HasWhitelistMAC reports whether an entry with exactly this mac exists
func (r *Repository) HasWhitelistMAC(ctx context.Context, mac string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM whitelist WHERE mac = $1 LIMIT 1`, mac).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select whitelist mac: %w", err)
	}
	return true, nil
}

// InsertWhitelist writes an entry and sets its ID and creation time
func (r *Repository) InsertWhitelist(ctx context.Context, entry *domain.WhitelistEntry) error {
	var created sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO whitelist (mac) VALUES ($1)
		RETURNING id, created_at
	`, entry.MAC).Scan(&entry.ID, &created)
	if err != nil {
		return fmt.Errorf("insert whitelist: %w", err)
	}
	if created.Valid {
		entry.CreatedAt = created.Time
	}
	return nil
}

// DB exposes the underlying sql.DB for diagnostics
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the pool
func (r *Repository) Close() error {
	return r.db.Close()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
