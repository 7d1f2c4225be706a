package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"picture-frame/internal/logging"
	"picture-frame/internal/metrics"
)

// Default timeout for catalog operations
const defaultTimeout = 5 * time.Second

// ErrNoImages is returned when a selection scope contains no catalogued
// images at all (unknown album filter or empty catalog).
var ErrNoImages = errors.New("no images match the requested scope")

// Store is the durable catalog of images and their rotation state.
// All mutation of the shown flags goes through PickAndMark and ResetShown,
// which serialize on an internal lock so concurrent callers never pick the
// same unshown image or double-reset an exhausted cycle.
type Store struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex
	stats   CatalogStats
	statsMu sync.RWMutex
	txStart time.Time
}

// New opens (creating if necessary) the catalog database at dbPath.
// The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Catalog database path: %s", dbPath)

	// WAL mode and busy_timeout keep concurrent readers from tripping
	// over "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog database initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		source_root TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		album TEXT NOT NULL,
		shown INTEGER NOT NULL DEFAULT 0,
		first_seen_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		last_seen_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		last_shown_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_images_album ON images(album);
	CREATE INDEX IF NOT EXISTS idx_images_album_shown ON images(album, shown);
	CREATE INDEX IF NOT EXISTS idx_images_root_seen ON images(source_root, last_seen_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return s.runMigrations(ctx)
}

// runMigrations applies catalog schema migrations
func (s *Store) runMigrations(ctx context.Context) error {
	// Migration 1: add last_seen_at for retirement tracking (older catalogs
	// only recorded first_seen_at)
	var columnExists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('images')
		WHERE name='last_seen_at'
	`).Scan(&columnExists)

	if err != nil {
		return fmt.Errorf("failed to check for last_seen_at column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating catalog: adding last_seen_at column to images table")

		_, err = s.db.ExecContext(ctx, `
			ALTER TABLE images ADD COLUMN last_seen_at INTEGER NOT NULL DEFAULT 0
		`)
		if err != nil {
			return fmt.Errorf("failed to add last_seen_at column: %w", err)
		}

		_, err = s.db.ExecContext(ctx, `
			UPDATE images SET last_seen_at = first_seen_at
		`)
		if err != nil {
			return fmt.Errorf("failed to initialize last_seen_at values: %w", err)
		}

		logging.Info("Migration complete: last_seen_at column added and initialized")
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginBatch starts a transaction for a scan's reconciliation pass.
// The caller is responsible for calling EndBatch when done.
func (s *Store) BeginBatch() (*sql.Tx, error) {
	s.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction's lifetime is managed by
	// EndBatch, not a timeout.
	tx, err := s.db.BeginTx(context.Background(), nil)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.txStart = txStart
	return tx, nil
}

// EndBatch commits or rolls back a transaction started with BeginBatch.
func (s *Store) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(s.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpdateStats updates the cached catalog statistics.
func (s *Store) UpdateStats(stats CatalogStats) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats = stats
}

// GetStats returns the cached catalog statistics.
func (s *Store) GetStats() CatalogStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// CalculateStats queries the catalog for current totals and refreshes the
// exported gauges. The LastScanned and ScanDuration fields are filled in
// by the scanner, not here.
func (s *Store) CalculateStats(ctx context.Context) (CatalogStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats CatalogStats
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT album),
		       COALESCE(SUM(CASE WHEN shown = 0 THEN 1 ELSE 0 END), 0)
		FROM images
	`).Scan(&stats.TotalImages, &stats.TotalAlbums, &stats.UnshownImages)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("failed to calculate catalog stats: %w", err)
	}

	metrics.CatalogImages.Set(float64(stats.TotalImages))
	metrics.CatalogAlbums.Set(float64(stats.TotalAlbums))

	return stats, nil
}

// recordQuery records catalog query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
