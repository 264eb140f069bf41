// Package repository defines the storage interfaces the ledger consumes. The
// substrate behind them must provide per-call serializability for a
// (service, key) record pair and atomic multi-record writes within one call.
package repository

import (
	"context"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/errors"
)

// ServiceRepository defines the interface for interacting with service storage.
type ServiceRepository interface {
	// Create persists a new service record. Returns ErrServiceAlreadyExists
	// when the authority already owns one; uniqueness is the substrate's
	// guarantee, not the caller's.
	Create(ctx context.Context, svc *models.Service) *errors.AppError

	// FindByAuthority retrieves the service record keyed by the authority
	// identity. Returns ErrServiceNotFound when absent.
	FindByAuthority(ctx context.Context, authority string) (*models.Service, *errors.AppError)

	// Update persists counter mutations on an existing record.
	Update(ctx context.Context, svc *models.Service) *errors.AppError
}
