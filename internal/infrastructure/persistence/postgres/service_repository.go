package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/repository"
	"github.com/turtacn/keygate/pkg/errors"
)

// ServiceRepository is the PostgreSQL implementation of the service registry.
type ServiceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new ServiceRepository.
func NewServiceRepository(db *gorm.DB) repository.ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create inserts a new service record. A duplicate authority is rejected.
func (r *ServiceRepository) Create(ctx context.Context, svc *models.Service) *errors.AppError {
	if err := r.db.WithContext(ctx).Create(svc).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrServiceAlreadyExists
		}
		return errors.ErrDatabaseOperation.WithError(err)
	}
	return nil
}

// FindByAuthority retrieves a service record by its authority.
func (r *ServiceRepository) FindByAuthority(ctx context.Context, authority string) (*models.Service, *errors.AppError) {
	var svc models.Service
	err := r.db.WithContext(ctx).Where("authority = ?", authority).First(&svc).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrServiceNotFound.WithDetail("authority", authority)
		}
		return nil, errors.ErrDatabaseOperation.WithError(err)
	}
	return &svc, nil
}

// Update persists counter and metadata changes on an existing service record.
func (r *ServiceRepository) Update(ctx context.Context, svc *models.Service) *errors.AppError {
	result := r.db.WithContext(ctx).Model(&models.Service{}).
		Where("authority = ?", svc.Authority).
		Updates(map[string]interface{}{
			"name":               svc.Name,
			"default_rate_limit": svc.DefaultRateLimit,
			"total_keys":         svc.TotalKeys,
			"active_keys":        svc.ActiveKeys,
		})
	if result.Error != nil {
		return errors.ErrDatabaseOperation.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrServiceNotFound.WithDetail("authority", svc.Authority)
	}
	return nil
}
