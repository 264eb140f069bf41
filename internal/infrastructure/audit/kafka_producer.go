// Package audit implements the AuditService interface using Kafka.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/keygate/internal/config"
	"github.com/turtacn/keygate/internal/domain/models"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/logger"
)

// KafkaProducer is a Kafka-backed implementation of the AuditService. Events
// are keyed by service authority so one service's lifecycle stays ordered
// within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaProducer creates a new KafkaProducer.
func NewKafkaProducer(cfg *config.KafkaConfig, log logger.Logger) domainsvc.AuditService {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return &KafkaProducer{
		writer: writer,
		logger: log.WithComponent("KafkaProducer"),
	}
}

// LogEvent publishes an audit event to the Kafka topic.
func (p *KafkaProducer) LogEvent(ctx context.Context, event models.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ServiceAuthority),
		Value: payload,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to publish audit event", err,
			logger.String("event_type", string(event.Type)),
		)
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
