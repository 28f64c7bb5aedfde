package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS espData (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		anchor_id TEXT NOT NULL,
		ssid TEXT,
		rssi INTEGER NOT NULL,
		block_number INTEGER NOT NULL DEFAULT 0,
		mac TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS whitelist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mac TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_espdata_created ON espData(created_at);
	CREATE INDEX IF NOT EXISTS idx_whitelist_mac ON whitelist(mac);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListDetections returns up to limit of the most recently inserted detections,
// oldest first so later rows win deduplication.
func (r *Repository) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	if limit <= 0 {
		limit = repository.DefaultBatchSize
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, anchor_id, ssid, rssi, block_number, mac FROM (
			SELECT id, anchor_id, ssid, rssi, block_number, mac
			FROM espData ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	detections := make([]domain.Detection, 0, limit)
	for rows.Next() {
		var (
			d         domain.Detection
			ssid, mac sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.AnchorID, &ssid, &d.RSSI, &d.Block, &mac); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		d.SSID = nullToString(ssid)
		d.MAC = nullToString(mac)
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}

	return detections, nil
}

// InsertDetection stores a detection and sets its ID
func (r *Repository) InsertDetection(ctx context.Context, d *domain.Detection) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO espData (anchor_id, ssid, rssi, block_number, mac, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.AnchorID, stringToNull(d.SSID), d.RSSI, d.Block, stringToNull(d.MAC), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read detection id: %w", err)
	}
	d.ID = id
	return nil
}

// ListWhitelist returns all whitelist entries in insertion order
func (r *Repository) ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, mac, created_at FROM whitelist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query whitelist: %w", err)
	}
	defer rows.Close()

	var entries []domain.WhitelistEntry
	for rows.Next() {
		var (
			e       domain.WhitelistEntry
			created string
		)
		if err := rows.Scan(&e.ID, &e.MAC, &created); err != nil {
			return nil, fmt.Errorf("failed to scan whitelist entry: %w", err)
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating whitelist: %w", err)
	}

	return entries, nil
}

// HasWhitelistMAC reports whether an entry with exactly this mac exists
func (r *Repository) HasWhitelistMAC(ctx context.Context, mac string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM whitelist WHERE mac = ? LIMIT 1`, mac).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query whitelist: %w", err)
	}
	return true, nil
}

// InsertWhitelist stores an entry and sets its ID and creation time
func (r *Repository) InsertWhitelist(ctx context.Context, entry *domain.WhitelistEntry) error {
	if strings.TrimSpace(entry.MAC) == "" {
		return fmt.Errorf("whitelist entry requires a mac")
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO whitelist (mac, created_at) VALUES (?, ?)
	`, entry.MAC, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert whitelist entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read whitelist id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now.Truncate(time.Second)
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
