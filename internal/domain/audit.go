package domain

import (
	"context"
	"time"
)

// AuditEntry records how a single entitlement event was disposed of.
// Entries are append-only; they exist for dispute resolution and are
// never updated or deleted.
type AuditEntry struct {
	ID        int64
	EventKind string
	EventKey  string
	Outcome   TransitionOutcome
	Detail    string
	CreatedAt time.Time
}

// AuditRepository defines persistence for the entitlement audit log.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}
