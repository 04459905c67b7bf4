package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"model-library/internal/logging"
	"model-library/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a lookup matches no catalog row.
var ErrNotFound = errors.New("model not found")

// Database is the persisted model catalog. All writes go through an
// explicit transaction (Begin/End) so a refresh either commits in full or
// leaves the prior catalog state untouched.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex
	txStart time.Time
}

// New opens (or creates) the catalog database at dbPath. The parent
// directory must already exist and be writable; use startup.LoadConfig to
// validate that before calling.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Catalog database path: %s", dbPath)

	// WAL keeps readers unblocked while a refresh transaction is open;
	// busy_timeout prevents spurious "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

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

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Catalog database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		assets TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		preview TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_models_slug ON models(slug);
	CREATE INDEX IF NOT EXISTS idx_models_path ON models(path);
	`

	_, err := d.db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	if err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations applies catalog schema migrations.
func (d *Database) runMigrations(ctx context.Context) error {
	// Migration 1: add the description column to catalogs created before
	// sidecar metadata was stored.
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('models')
		WHERE name='description'
	`).Scan(&columnExists)

	if err != nil {
		return fmt.Errorf("failed to check for description column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating catalog: adding description column to models table")

		_, err = d.db.ExecContext(ctx, `
			ALTER TABLE models ADD COLUMN description TEXT NOT NULL DEFAULT ''
		`)
		if err != nil {
			return fmt.Errorf("failed to add description column: %w", err)
		}

		logging.Info("Migration complete: description column added")
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Begin starts a catalog transaction. The caller must finish it with End.
func (d *Database) Begin(ctx context.Context) (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Transaction lifetime is managed by End, not a timeout context; a
	// deferred cancel here would kill the transaction on return.
	tx, err := d.db.BeginTx(ctx, nil)
	d.mu.Unlock()

	if err != nil {
		recordQuery("begin_transaction", txStart, err)
		return nil, err
	}

	d.txStart = txStart
	return tx, nil
}

// End commits the transaction if err is nil, otherwise rolls it back and
// returns the original error.
func (d *Database) End(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// InsertModel inserts a new catalog row within a transaction and returns
// the assigned id.
func (d *Database) InsertModel(tx *sql.Tx, rec *ModelRecord) (int64, error) {
	start := time.Now()

	assets, err := json.Marshal(rec.Assets)
	if err != nil {
		return 0, fmt.Errorf("failed to encode asset list: %w", err)
	}

	result, err := tx.ExecContext(context.Background(), `
		INSERT INTO models (slug, name, path, fingerprint, assets, description, preview)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Slug, rec.Name, rec.Path, rec.Fingerprint, string(assets), rec.Description, rec.Preview)
	recordQuery("insert_model", start, err)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// UpdateModel rewrites an existing row in place, preserving its id and
// created_at.
func (d *Database) UpdateModel(tx *sql.Tx, id int64, rec *ModelRecord) error {
	start := time.Now()

	assets, err := json.Marshal(rec.Assets)
	if err != nil {
		return fmt.Errorf("failed to encode asset list: %w", err)
	}

	result, err := tx.ExecContext(context.Background(), `
		UPDATE models
		SET slug = ?, name = ?, path = ?, fingerprint = ?, assets = ?,
		    description = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, rec.Slug, rec.Name, rec.Path, rec.Fingerprint, string(assets), rec.Description, id)
	recordQuery("update_model", start, err)
	if err != nil {
		return err
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteModel removes a catalog row within a transaction.
func (d *Database) DeleteModel(tx *sql.Tx, id int64) error {
	start := time.Now()

	_, err := tx.ExecContext(context.Background(), "DELETE FROM models WHERE id = ?", id)
	recordQuery("delete_model", start, err)
	return err
}

// SetPreview records the preview cache reference for a model. It runs
// outside the refresh transaction: previews are materialized lazily after
// the catalog has committed.
func (d *Database) SetPreview(ctx context.Context, id int64, preview string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "UPDATE models SET preview = ? WHERE id = ?", preview, id)
	return err
}

// ListModels returns all catalog rows ordered by name.
func (d *Database) ListModels(ctx context.Context) ([]ModelRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_models", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, slug, name, path, fingerprint, assets, description, preview, created_at, updated_at
		FROM models ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ModelRecord
	for rows.Next() {
		rec, scanErr := scanModel(rows)
		if scanErr != nil {
			err = scanErr
			return nil, scanErr
		}
		records = append(records, rec)
	}

	err = rows.Err()
	return records, err
}

// GetModelBySlug returns the catalog row for slug, or ErrNotFound.
func (d *Database) GetModelBySlug(ctx context.Context, slug string) (*ModelRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_model_by_slug", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT id, slug, name, path, fingerprint, assets, description, preview, created_at, updated_at
		FROM models WHERE slug = ?
	`, slug)

	rec, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanModel(s scanner) (ModelRecord, error) {
	var rec ModelRecord
	var assets string
	var createdAt, updatedAt int64

	err := s.Scan(&rec.ID, &rec.Slug, &rec.Name, &rec.Path, &rec.Fingerprint,
		&assets, &rec.Description, &rec.Preview, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}

	if err := json.Unmarshal([]byte(assets), &rec.Assets); err != nil {
		return rec, fmt.Errorf("corrupt asset list for %s: %w", rec.Slug, err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return rec, nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
