package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/turtacn/keygate/internal/application/dto"
	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/repository"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// LedgerAppService exposes the key-ledger operations: issuance, usage
// recording, scope validation, revocation/reactivation, and the
// authority-only administrative updates.
// LedgerAppService 暴露密钥台账操作：
// 签发、用量记录、作用域校验、吊销/恢复，以及仅限权威方的管理更新。
type LedgerAppService interface {
	// CreateKey issues a new key under a service; the verified signer
	// becomes its owner and the service counters advance atomically.
	CreateKey(ctx context.Context, signer, serviceAuthority string, req *dto.CreateKeyRequest) (*dto.KeyDTO, *errors.AppError)

	// GetKey retrieves a key record by its identity triple.
	GetKey(ctx context.Context, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError)

	// ListKeys retrieves the keys issued under a service, paginated.
	ListKeys(ctx context.Context, serviceAuthority string, limit, offset int) ([]*dto.KeyDTO, *errors.AppError)

	// RecordRequest counts one request against the key's daily allowance.
	// Only the service authority may attest usage.
	RecordRequest(ctx context.Context, signer string, ref dto.KeyRef) (*dto.UsageDTO, *errors.AppError)

	// ValidateScope checks the key carries the required scope. Read-only.
	ValidateScope(ctx context.Context, ref dto.KeyRef, requiredScope string) *errors.AppError

	// Revoke deactivates a key. Owner or authority.
	Revoke(ctx context.Context, signer string, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError)

	// Reactivate re-enables a revoked, unexpired key. Owner or authority.
	Reactivate(ctx context.Context, signer string, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError)

	// UpdateRateLimit overwrites the key's rate limit. Authority only.
	UpdateRateLimit(ctx context.Context, signer string, ref dto.KeyRef, newLimit uint64) (*dto.KeyDTO, *errors.AppError)

	// UpdateScopes fully replaces the key's scope list. Authority only.
	UpdateScopes(ctx context.Context, signer string, ref dto.KeyRef, newScopes []string) (*dto.KeyDTO, *errors.AppError)

	// ExtendExpiration replaces the key's expiration timestamp with a
	// strictly future value. Authority only.
	ExtendExpiration(ctx context.Context, signer string, ref dto.KeyRef, newExpiresAt int64) (*dto.KeyDTO, *errors.AppError)
}

type ledgerAppService struct {
	uow    repository.UnitOfWork
	keys   repository.KeyRepository
	cache  domainsvc.RecordCache
	audit  domainsvc.AuditService
	clock  domainsvc.Clock
	logger logger.Logger
}

// NewLedgerAppService creates a new LedgerAppService.
func NewLedgerAppService(
	uow repository.UnitOfWork,
	keys repository.KeyRepository,
	cache domainsvc.RecordCache,
	audit domainsvc.AuditService,
	clock domainsvc.Clock,
	log logger.Logger,
) LedgerAppService {
	return &ledgerAppService{
		uow:    uow,
		keys:   keys,
		cache:  cache,
		audit:  audit,
		clock:  clock,
		logger: log.WithComponent("LedgerAppService"),
	}
}

func (s *ledgerAppService) CreateKey(ctx context.Context, signer, serviceAuthority string, req *dto.CreateKeyRequest) (*dto.KeyDTO, *errors.AppError) {
	now := s.clock.Now()
	var created *models.APIKey

	appErr := s.uow.WithinTx(ctx, func(services repository.ServiceRepository, keys repository.KeyRepository) *errors.AppError {
		svc, appErr := services.FindByAuthority(ctx, serviceAuthority)
		if appErr != nil {
			return appErr
		}

		key, appErr := models.NewAPIKey(svc, signer, req.Name, req.Scopes, req.RateLimit, req.ExpiresAt, now)
		if appErr != nil {
			return appErr
		}

		// Sequence assignment and the counter increments are one atomic
		// unit with the key insert; a failed insert rolls the counters back.
		key.Sequence = svc.AdmitKey()
		if appErr := keys.Create(ctx, key); appErr != nil {
			return appErr
		}
		if appErr := services.Update(ctx, svc); appErr != nil {
			return appErr
		}
		created = key
		return nil
	})
	if appErr != nil {
		return nil, appErr
	}

	s.cache.InvalidateService(ctx, serviceAuthority)
	s.cache.SetKey(ctx, created)
	s.publish(ctx, models.AuditEvent{
		Type:             constants.AuditEventKeyCreated,
		ServiceAuthority: serviceAuthority,
		Owner:            created.Owner,
		Sequence:         created.Sequence,
		Signer:           signer,
		Metadata:         map[string]string{"name": created.Name},
	})

	s.logger.Info(ctx, "api key issued",
		logger.String("service", serviceAuthority),
		logger.String("owner", created.Owner),
		logger.Uint64("sequence", created.Sequence),
		logger.Uint64("rate_limit", created.RateLimit),
	)
	return dto.KeyFromModel(created), nil
}

func (s *ledgerAppService) GetKey(ctx context.Context, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError) {
	key, appErr := s.loadKey(ctx, ref)
	if appErr != nil {
		return nil, appErr
	}
	return dto.KeyFromModel(key), nil
}

func (s *ledgerAppService) ListKeys(ctx context.Context, serviceAuthority string, limit, offset int) ([]*dto.KeyDTO, *errors.AppError) {
	keys, appErr := s.keys.ListByService(ctx, serviceAuthority, limit, offset)
	if appErr != nil {
		return nil, appErr
	}
	out := make([]*dto.KeyDTO, 0, len(keys))
	for _, key := range keys {
		out = append(out, dto.KeyFromModel(key))
	}
	return out, nil
}

func (s *ledgerAppService) RecordRequest(ctx context.Context, signer string, ref dto.KeyRef) (*dto.UsageDTO, *errors.AppError) {
	now := s.clock.Now()
	var usage *dto.UsageDTO

	appErr := s.mutatePair(ctx, ref, func(svc *models.Service, key *models.APIKey) (*errors.AppError, bool) {
		// The service itself attests usage; key owners cannot inflate
		// their own counters.
		if !domainsvc.IsAuthority(svc, signer) {
			return errors.ErrUnauthorized, false
		}
		if appErr := key.RecordRequest(now); appErr != nil {
			return appErr, false
		}
		usage = dto.UsageFromModel(key)
		return nil, false
	})
	if appErr != nil {
		if appErr.Is(errors.ErrRateLimitExceeded) {
			s.publish(ctx, models.AuditEvent{
				Type:             constants.AuditEventRateLimitExceeded,
				ServiceAuthority: ref.ServiceAuthority,
				Owner:            ref.Owner,
				Sequence:         ref.Sequence,
				Signer:           signer,
			})
		}
		return nil, appErr
	}

	s.cache.InvalidateKey(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence)
	return usage, nil
}

func (s *ledgerAppService) ValidateScope(ctx context.Context, ref dto.KeyRef, requiredScope string) *errors.AppError {
	key, appErr := s.loadKey(ctx, ref)
	if appErr != nil {
		return appErr
	}
	return key.ValidateScope(s.clock.Now(), requiredScope)
}

func (s *ledgerAppService) Revoke(ctx context.Context, signer string, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError) {
	return s.transition(ctx, signer, ref, constants.AuditEventKeyRevoked,
		func(svc *models.Service, key *models.APIKey) *errors.AppError {
			if !domainsvc.IsOwnerOrAuthority(svc, key, signer) {
				return errors.ErrUnauthorized
			}
			if appErr := key.Revoke(); appErr != nil {
				return appErr
			}
			svc.ReleaseActiveKey()
			return nil
		})
}

func (s *ledgerAppService) Reactivate(ctx context.Context, signer string, ref dto.KeyRef) (*dto.KeyDTO, *errors.AppError) {
	now := s.clock.Now()
	return s.transition(ctx, signer, ref, constants.AuditEventKeyReactivated,
		func(svc *models.Service, key *models.APIKey) *errors.AppError {
			if !domainsvc.IsOwnerOrAuthority(svc, key, signer) {
				return errors.ErrUnauthorized
			}
			if appErr := key.Reactivate(now); appErr != nil {
				return appErr
			}
			svc.RestoreActiveKey()
			return nil
		})
}

func (s *ledgerAppService) UpdateRateLimit(ctx context.Context, signer string, ref dto.KeyRef, newLimit uint64) (*dto.KeyDTO, *errors.AppError) {
	return s.adminUpdate(ctx, signer, ref, map[string]string{"rate_limit": strconv.FormatUint(newLimit, 10)},
		func(key *models.APIKey) *errors.AppError {
			key.UpdateRateLimit(newLimit)
			return nil
		})
}

func (s *ledgerAppService) UpdateScopes(ctx context.Context, signer string, ref dto.KeyRef, newScopes []string) (*dto.KeyDTO, *errors.AppError) {
	return s.adminUpdate(ctx, signer, ref, map[string]string{"scope_count": strconv.Itoa(len(newScopes))},
		func(key *models.APIKey) *errors.AppError {
			return key.ReplaceScopes(newScopes)
		})
}

func (s *ledgerAppService) ExtendExpiration(ctx context.Context, signer string, ref dto.KeyRef, newExpiresAt int64) (*dto.KeyDTO, *errors.AppError) {
	now := s.clock.Now()
	return s.adminUpdate(ctx, signer, ref, map[string]string{"expires_at": strconv.FormatInt(newExpiresAt, 10)},
		func(key *models.APIKey) *errors.AppError {
			return key.SetExpiration(now, newExpiresAt)
		})
}

// ================================================================================
// Internals
// ================================================================================

// loadKey serves the read-only paths through the record cache, falling back to
// the storage substrate on a miss.
func (s *ledgerAppService) loadKey(ctx context.Context, ref dto.KeyRef) (*models.APIKey, *errors.AppError) {
	if key, ok := s.cache.GetKey(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence); ok {
		return key, nil
	}

	key, appErr := s.keys.Find(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence)
	if appErr != nil {
		return nil, appErr
	}

	s.cache.SetKey(ctx, key)
	return key, nil
}

// mutatePair runs fn against a freshly loaded (service, key) pair inside one
// atomic write. The bool return of fn marks whether the service record was
// mutated and needs persisting alongside the key.
func (s *ledgerAppService) mutatePair(ctx context.Context, ref dto.KeyRef, fn func(*models.Service, *models.APIKey) (*errors.AppError, bool)) *errors.AppError {
	return s.uow.WithinTx(ctx, func(services repository.ServiceRepository, keys repository.KeyRepository) *errors.AppError {
		svc, appErr := services.FindByAuthority(ctx, ref.ServiceAuthority)
		if appErr != nil {
			return appErr
		}
		key, appErr := keys.Find(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence)
		if appErr != nil {
			return appErr
		}
		if !key.BelongsTo(svc) {
			return errors.ErrServiceMismatch
		}

		appErr, serviceDirty := fn(svc, key)
		if appErr != nil {
			return appErr
		}

		if appErr := keys.Update(ctx, key); appErr != nil {
			return appErr
		}
		if serviceDirty {
			if appErr := services.Update(ctx, svc); appErr != nil {
				return appErr
			}
		}
		return nil
	})
}

// transition applies a revoke/reactivate state change, persisting the key flip
// and the service counter adjustment as a single atomic unit.
func (s *ledgerAppService) transition(ctx context.Context, signer string, ref dto.KeyRef, event constants.AuditEventType, fn func(*models.Service, *models.APIKey) *errors.AppError) (*dto.KeyDTO, *errors.AppError) {
	var result *models.APIKey

	appErr := s.mutatePair(ctx, ref, func(svc *models.Service, key *models.APIKey) (*errors.AppError, bool) {
		if appErr := fn(svc, key); appErr != nil {
			return appErr, false
		}
		result = key
		return nil, true
	})
	if appErr != nil {
		return nil, appErr
	}

	s.cache.InvalidateKey(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence)
	s.cache.InvalidateService(ctx, ref.ServiceAuthority)
	s.publish(ctx, models.AuditEvent{
		Type:             event,
		ServiceAuthority: ref.ServiceAuthority,
		Owner:            ref.Owner,
		Sequence:         ref.Sequence,
		Signer:           signer,
	})

	s.logger.Info(ctx, "api key state transition",
		logger.String("event", string(event)),
		logger.String("service", ref.ServiceAuthority),
		logger.String("owner", ref.Owner),
		logger.Uint64("sequence", ref.Sequence),
	)
	return dto.KeyFromModel(result), nil
}

// adminUpdate applies an authority-only field update on the key record.
func (s *ledgerAppService) adminUpdate(ctx context.Context, signer string, ref dto.KeyRef, metadata map[string]string, fn func(*models.APIKey) *errors.AppError) (*dto.KeyDTO, *errors.AppError) {
	var result *models.APIKey

	appErr := s.mutatePair(ctx, ref, func(svc *models.Service, key *models.APIKey) (*errors.AppError, bool) {
		if !domainsvc.IsAuthority(svc, signer) {
			return errors.ErrUnauthorized, false
		}
		if appErr := fn(key); appErr != nil {
			return appErr, false
		}
		result = key
		return nil, false
	})
	if appErr != nil {
		return nil, appErr
	}

	s.cache.InvalidateKey(ctx, ref.ServiceAuthority, ref.Owner, ref.Sequence)
	s.publish(ctx, models.AuditEvent{
		Type:             constants.AuditEventKeyUpdated,
		ServiceAuthority: ref.ServiceAuthority,
		Owner:            ref.Owner,
		Sequence:         ref.Sequence,
		Signer:           signer,
		Metadata:         metadata,
	})
	return dto.KeyFromModel(result), nil
}

func (s *ledgerAppService) publish(ctx context.Context, event models.AuditEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = s.clock.Now()
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to publish audit event",
			logger.String("event_type", string(event.Type)),
			logger.Error(err),
		)
	}
}
