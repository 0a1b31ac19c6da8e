package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrezende/membergate/internal/domain"
)

// AuditRepository implements the append-only entitlement audit log.
type AuditRepository struct {
	db *sql.DB
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return insertAudit(ctx, r.db, entry)
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_kind, event_key, outcome, detail, created_at
		 FROM entitlement_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.EventKind, &e.EventKey, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// execer covers *sql.DB and *sql.Tx so audit inserts can join a
// transition's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, db execer, entry *domain.AuditEntry) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO entitlement_audit (event_kind, event_key, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.EventKind, entry.EventKey, string(entry.Outcome), entry.Detail, now,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}
