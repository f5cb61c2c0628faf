package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"certtrack/internal/platform/config"
)

// Kafka publishes audit events to a Kafka topic. Produces are asynchronous;
// delivery failures are logged, never surfaced to the caller.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a producer for the audit topic. Returns nil if no brokers
// are configured, which callers treat as "auditing to Kafka disabled".
func NewKafka(cfg config.Kafka, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Kafka{client: client, topic: cfg.AuditTopic, logger: logger}, nil
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.TenantID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("audit event delivery failed",
				"kind", event.Kind,
				"subject", event.Subject,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and shuts the producer down.
func (k *Kafka) Close() {
	if err := k.client.Flush(context.Background()); err != nil {
		k.logger.Error("audit flush failed", "error", err)
	}
	k.client.Close()
}
