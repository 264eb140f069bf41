package service

import (
	"context"

	"github.com/turtacn/keygate/internal/domain/models"
)

// AuditService publishes lifecycle events to an external stream. Publishing is
// best-effort: a failed publish is logged by the implementation and never
// fails the operation that produced the event.
type AuditService interface {
	// LogEvent publishes a single audit event.
	LogEvent(ctx context.Context, event models.AuditEvent) error

	// Close flushes and releases the underlying producer.
	Close() error
}

// RecordCache is a read-through cache for key records on the read-only paths
// (lookups, scope validation). Implementations must treat cache failures as
// misses; the storage substrate remains the source of truth.
type RecordCache interface {
	// GetKey returns the cached key record, or a miss error.
	GetKey(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*models.APIKey, bool)

	// SetKey caches a key record.
	SetKey(ctx context.Context, key *models.APIKey)

	// InvalidateKey drops a key record after any mutation.
	InvalidateKey(ctx context.Context, serviceAuthority, owner string, sequence uint64)

	// GetService returns the cached service record, or a miss.
	GetService(ctx context.Context, authority string) (*models.Service, bool)

	// SetService caches a service record.
	SetService(ctx context.Context, svc *models.Service)

	// InvalidateService drops a service record after any mutation.
	InvalidateService(ctx context.Context, authority string)
}
