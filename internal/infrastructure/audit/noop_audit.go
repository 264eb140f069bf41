package audit

import (
	"context"

	"github.com/turtacn/keygate/internal/domain/models"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/logger"
)

// logOnlyAudit writes audit events to the structured log instead of a broker.
// Used when no Kafka brokers are configured.
type logOnlyAudit struct {
	logger logger.Logger
}

// NewLogOnlyAudit creates an AuditService that records events as log entries.
func NewLogOnlyAudit(log logger.Logger) domainsvc.AuditService {
	return &logOnlyAudit{logger: log.WithComponent("Audit")}
}

func (a *logOnlyAudit) LogEvent(ctx context.Context, event models.AuditEvent) error {
	a.logger.Info(ctx, "audit event",
		logger.String("event_id", event.ID),
		logger.String("event_type", string(event.Type)),
		logger.String("service_authority", event.ServiceAuthority),
		logger.String("owner", event.Owner),
		logger.Uint64("sequence", event.Sequence),
		logger.String("signer", event.Signer),
		logger.Int64("timestamp", event.Timestamp),
	)
	return nil
}

func (a *logOnlyAudit) Close() error { return nil }
