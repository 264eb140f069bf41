package repository

import (
	"context"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/errors"
)

// KeyRepository defines the interface for interacting with key storage.
type KeyRepository interface {
	// Create persists a new key record. The (service, owner, sequence)
	// identity is unique; the substrate rejects duplicates.
	Create(ctx context.Context, key *models.APIKey) *errors.AppError

	// Find retrieves a key by its identity triple. Returns ErrKeyNotFound
	// when absent.
	Find(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*models.APIKey, *errors.AppError)

	// Update persists state mutations on an existing record.
	Update(ctx context.Context, key *models.APIKey) *errors.AppError

	// ListByService retrieves keys issued under a service, ordered by
	// owner and sequence, with pagination.
	ListByService(ctx context.Context, serviceAuthority string, limit, offset int) ([]*models.APIKey, *errors.AppError)
}

// UnitOfWork runs a function against repositories bound to one atomic write.
// Every ledger operation that touches both a Service and a Key record goes
// through it: either both records commit or neither does. A returned error
// discards all buffered writes.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(services ServiceRepository, keys KeyRepository) *errors.AppError) *errors.AppError
}
