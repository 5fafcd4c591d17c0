package mock

import (
	"context"
	"log/slog"

	"food-gateway/internal/core/domain"
)

// Broker - stub for EventPublisher, used when Kafka is not configured.
type Broker struct {
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{logger: logger}
}

func (b *Broker) Close() {}

// PublishCommandProcessed only logs the event instead of sending it to Kafka.
func (b *Broker) PublishCommandProcessed(ctx context.Context, event domain.CommandEvent) error {
	b.logger.InfoContext(ctx, "[MOCK] command processed",
		"command", event.Command,
		"account", event.Account,
		"txn_id", event.TxnID,
		"result", event.Result,
		"enriched", event.Enriched,
	)
	return nil
}
