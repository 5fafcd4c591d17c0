package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"food-gateway/internal/core/domain"
)

// Broker is an implementation of the EventPublisher port for Kafka.
type Broker struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewBroker creates a new Kafka broker instance. bootstrapServers is a comma separated list.
func NewBroker(ctx context.Context, bootstrapServers, topic string, logger *slog.Logger) (*Broker, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(splitServers(bootstrapServers)...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать kafka-клиент: %w", err)
	}

	// Checking the connection
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к kafka: %w", err)
	}

	return &Broker{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// commandMessage is the wire form of a CommandEvent.
type commandMessage struct {
	Command     string `json:"command"`
	Account     string `json:"account"`
	Agent       string `json:"agent,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
	TxnID       string `json:"txn_id,omitempty"`
	TxnDate     int64  `json:"txn_date,omitempty"`
	Result      string `json:"result"`
	RequestID   string `json:"request_id,omitempty"`
	Enriched    bool   `json:"enriched"`
	ProcessedAt string `json:"processed_at"`
}

func encodeEvent(event domain.CommandEvent) ([]byte, error) {
	return json.Marshal(commandMessage{
		Command:     string(event.Command),
		Account:     event.Account,
		Agent:       event.Agent,
		ServiceType: string(event.ServiceType),
		TxnID:       event.TxnID,
		TxnDate:     event.TxnDate,
		Result:      event.Result,
		RequestID:   event.RequestID,
		Enriched:    event.Enriched,
		ProcessedAt: event.ProcessedAt.UTC().Format(time.RFC3339),
	})
}

// PublishCommandProcessed publishes an accepted command, keyed by account so one account stays ordered.
func (b *Broker) PublishCommandProcessed(ctx context.Context, event domain.CommandEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal command event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.Account),
		Value: payload,
	}

	b.wg.Add(1)
	// Produce sends a record asynchronously.
	b.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer b.wg.Done()
		if err != nil {
			b.logger.Error("не удалось доставить сообщение в kafka", "topic", r.Topic, "command", event.Command, "error", err)
		} else {
			b.logger.Debug("сообщение успешно доставлено в kafka", "topic", r.Topic, "partition", r.Partition, "offset", r.Offset)
		}
	})

	return nil
}

// Close gracefully stops the producer.
func (b *Broker) Close() {
	b.logger.Info("ожидание завершения отправки сообщений в kafka...")
	b.wg.Wait() // Ждём, пока все колбэки отработают
	b.client.Close()
	b.logger.Info("kafka-клиент успешно остановлен")
}

func splitServers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
