// Package sqlite implements the persistence layer on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB owns the SQLite connection and hands out repositories bound to it.
type DB struct {
	sqlDB *sql.DB
}

var _ domain.Database = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for
// use. It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// A single connection serializes writers; entitlement transitions rely
	// on this together with their transactions for exclusive
	// read-modify-write on a user row.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{sqlDB: db}, nil
}

// Migrate applies all unapplied schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.sqlDB)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// Users returns the user repository.
func (db *DB) Users() domain.UserRepository {
	return &UserRepository{db: db.sqlDB}
}

// Entitlements returns the entitlement transition repository.
func (db *DB) Entitlements() domain.EntitlementRepository {
	return &EntitlementRepository{db: db.sqlDB}
}

// Audit returns the entitlement audit log repository.
func (db *DB) Audit() domain.AuditRepository {
	return &AuditRepository{db: db.sqlDB}
}
