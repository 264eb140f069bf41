// Package service provides the application-layer services orchestrating
// ledger operations: load records, authorize, run the domain transition,
// and persist the result as one atomic write.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/keygate/internal/application/dto"
	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/repository"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// RegistryAppService exposes the service-registry operations: creating the
// aggregate record that owns default policy and key counters, and reading it.
// RegistryAppService 暴露服务注册表操作：
// 创建持有默认策略和密钥计数器的聚合记录，以及读取该记录。
type RegistryAppService interface {
	// CreateService initializes a service record; the verified signer
	// becomes its immutable authority.
	CreateService(ctx context.Context, signer string, req *dto.CreateServiceRequest) (*dto.ServiceDTO, *errors.AppError)

	// GetService retrieves a service record by authority.
	GetService(ctx context.Context, authority string) (*dto.ServiceDTO, *errors.AppError)
}

type registryAppService struct {
	uow      repository.UnitOfWork
	services repository.ServiceRepository
	cache    domainsvc.RecordCache
	audit    domainsvc.AuditService
	clock    domainsvc.Clock
	logger   logger.Logger
}

// NewRegistryAppService creates a new RegistryAppService.
func NewRegistryAppService(
	uow repository.UnitOfWork,
	services repository.ServiceRepository,
	cache domainsvc.RecordCache,
	audit domainsvc.AuditService,
	clock domainsvc.Clock,
	log logger.Logger,
) RegistryAppService {
	return &registryAppService{
		uow:      uow,
		services: services,
		cache:    cache,
		audit:    audit,
		clock:    clock,
		logger:   log.WithComponent("RegistryAppService"),
	}
}

func (s *registryAppService) CreateService(ctx context.Context, signer string, req *dto.CreateServiceRequest) (*dto.ServiceDTO, *errors.AppError) {
	svc, appErr := models.NewService(signer, req.Name, req.DefaultRateLimit)
	if appErr != nil {
		return nil, appErr
	}

	appErr = s.uow.WithinTx(ctx, func(services repository.ServiceRepository, _ repository.KeyRepository) *errors.AppError {
		return services.Create(ctx, svc)
	})
	if appErr != nil {
		return nil, appErr
	}

	s.cache.SetService(ctx, svc)
	s.publish(ctx, models.AuditEvent{
		Type:             constants.AuditEventServiceCreated,
		ServiceAuthority: svc.Authority,
		Signer:           signer,
		Metadata:         map[string]string{"name": svc.Name},
	})

	s.logger.Info(ctx, "service initialized",
		logger.String("authority", svc.Authority),
		logger.String("name", svc.Name),
		logger.Uint64("default_rate_limit", svc.DefaultRateLimit),
	)
	return dto.ServiceFromModel(svc), nil
}

func (s *registryAppService) GetService(ctx context.Context, authority string) (*dto.ServiceDTO, *errors.AppError) {
	if svc, ok := s.cache.GetService(ctx, authority); ok {
		return dto.ServiceFromModel(svc), nil
	}

	svc, appErr := s.services.FindByAuthority(ctx, authority)
	if appErr != nil {
		return nil, appErr
	}

	s.cache.SetService(ctx, svc)
	return dto.ServiceFromModel(svc), nil
}

func (s *registryAppService) publish(ctx context.Context, event models.AuditEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = s.clock.Now()
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to publish audit event",
			logger.String("event_type", string(event.Type)),
			logger.Error(err),
		)
	}
}
