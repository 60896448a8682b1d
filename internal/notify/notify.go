// Package notify announces completed analysis runs on a Kafka topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// RunCompletedEvent is the message body published after a successful run.
type RunCompletedEvent struct {
	Type             string                        `json:"type"`
	RunID            string                        `json:"run_id"`
	ProductsAnalyzed int                           `json:"products_analyzed"`
	ProductsSkipped  int                           `json:"products_skipped"`
	MalformedEvents  int                           `json:"malformed_events"`
	DeliveryMethods  map[domain.DeliveryMethod]int `json:"delivery_methods"`
	StartedAt        time.Time                     `json:"started_at"`
	CompletedAt      *time.Time                    `json:"completed_at,omitempty"`
}

const runCompletedType = "rotation.analysis.completed"

// Publisher sends run events. Close releases the underlying connection.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, run domain.RunSummary) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

type noopPublisher struct{}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return noopPublisher{}
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Kafka run publisher enabled")
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
	}
}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func newEvent(run domain.RunSummary) RunCompletedEvent {
	return RunCompletedEvent{
		Type:             runCompletedType,
		RunID:            run.RunID,
		ProductsAnalyzed: run.ProductsAnalyzed,
		ProductsSkipped:  run.ProductsSkipped,
		MalformedEvents:  run.MalformedEvents,
		DeliveryMethods:  run.DeliveryMethods,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
	}
}

func (p *kafkaPublisher) PublishRunCompleted(ctx context.Context, run domain.RunSummary) error {
	payload, err := json.Marshal(newEvent(run))
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.RunID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("kafka publish of run %s failed: %w", run.RunID, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

func (noopPublisher) PublishRunCompleted(context.Context, domain.RunSummary) error { return nil }
func (noopPublisher) Close() error                                                { return nil }
