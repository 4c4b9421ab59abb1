package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/offpos/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added order created_at index for report range scans
// 2 - Added sessions table for cross-process logout
const currentSchemaVersion = 2

// Store provides durable storage for the POS core.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	dsn := path + "?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the order date index for databases created before it
// was part of schema.sql.
func migrateToV1(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_orders_created
		ON orders(restaurant_id, created_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 adds the per-tenant session generation.
func migrateToV2(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			restaurant_id TEXT PRIMARY KEY,
			generation    INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// storeErr maps driver errors onto the model taxonomy.
// sql.ErrNoRows becomes NOT_FOUND; model errors pass through; everything
// else is an IO_FAILURE.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.WrapError(model.CodeNotFound, op, err)
	}
	var me *model.Error
	if errors.As(err, &me) {
		return err
	}
	return model.WrapError(model.CodeIOFailure, op, err)
}

// notFound builds a NOT_FOUND error for a tenant-scoped id.
func notFound(op, restaurantID, id string) error {
	return model.NewError(model.CodeNotFound, op, "%s not found for restaurant %s", id, restaurantID)
}

// inTx runs fn inside a transaction on the store connection.
// The transaction is rolled back unless fn returns nil and commit succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return storeErr(op, err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ClearRestaurantData deletes every record of the tenant in one transaction.
// Called on authentication teardown; no other path deletes implicitly.
// The session generation is kept; EndSession clears and bumps it together.
func (s *Store) ClearRestaurantData(ctx context.Context, restaurantID string) error {
	const op = "store.clear_restaurant_data"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}
	return s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		return clearRestaurant(ctx, tx, restaurantID)
	})
}

// tenantTables lists every table holding tenant records, children first.
var tenantTables = []string{
	"credit_transactions",
	"customers",
	"order_items",
	"orders",
	"expenses",
	"taxes",
	"notification_deliveries",
	"notifications",
}

func clearRestaurant(ctx context.Context, tx *sqlx.Tx, restaurantID string) error {
	for _, table := range tenantTables {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE restaurant_id = ?", table), restaurantID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
