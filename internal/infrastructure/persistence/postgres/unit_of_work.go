package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/keygate/internal/domain/repository"
	"github.com/turtacn/keygate/pkg/errors"
)

// UnitOfWork runs multi-record writes inside one database transaction so a
// key insert and its service counter update commit or roll back together.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(db *gorm.DB) repository.UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx executes fn with transaction-scoped repositories. Any error from
// fn aborts the transaction.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(services repository.ServiceRepository, keys repository.KeyRepository) *errors.AppError) *errors.AppError {
	var appErr *errors.AppError
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appErr = fn(NewServiceRepository(tx), NewKeyRepository(tx))
		if appErr != nil {
			return appErr
		}
		return nil
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return errors.ErrDatabaseOperation.WithError(err)
	}
	return nil
}
