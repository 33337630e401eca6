// Package broker derives the destination topic for each outbox event and
// publishes its envelope, keyed by aggregate_id for per-aggregate ordering.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kgo "github.com/twmb/franz-go/pkg/kgo"

	"github.com/vortex-fintech/payments-ledger/internal/broker/franzgo"
)

const (
	EventPaymentAuthorized = "PaymentAuthorized"
	EventPaymentDeclined   = "PaymentDeclined"

	topicAuthorized = "paymentauthorized"
	topicDeclined   = "paymentdeclined"
	topicDLQ        = "dlq"
)

// Envelope is the wire shape for every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
}

// DeadLetterEnvelope wraps an Envelope that exhausted its retries.
type DeadLetterEnvelope struct {
	Envelope
	RetryCount int       `json:"retry_count"`
	FailedAt   time.Time `json:"failed_at"`
	Error      string    `json:"error"`
}

// Publisher publishes event envelopes to topics namespaced under a prefix.
type Publisher struct {
	client *franzgo.Client
	prefix string
}

func NewPublisher(client *franzgo.Client, topicPrefix string) *Publisher {
	return &Publisher{client: client, prefix: topicPrefix}
}

func (p *Publisher) topicFor(eventType string) (string, error) {
	switch eventType {
	case EventPaymentAuthorized:
		return p.prefix + "." + topicAuthorized, nil
	case EventPaymentDeclined:
		return p.prefix + "." + topicDeclined, nil
	default:
		return "", fmt.Errorf("broker: unknown event type %q", eventType)
	}
}

// Publish sends one envelope, synchronously, to the topic its event type
// maps to, keyed by aggregate_id.
func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	topic, err := p.topicFor(env.EventType)
	if err != nil {
		return err
	}
	return p.produce(ctx, topic, env.AggregateID, env)
}

// PublishDeadLetter sends a retry-exhausted (or unrouteable) event to the
// dead-letter topic, wrapping it with failure metadata.
func (p *Publisher) PublishDeadLetter(ctx context.Context, env Envelope, retryCount int, failedAt time.Time, reason string) error {
	topic := p.prefix + "." + topicDLQ
	dl := DeadLetterEnvelope{
		Envelope:   env,
		RetryCount: retryCount,
		FailedAt:   failedAt,
		Error:      reason,
	}
	return p.produce(ctx, topic, env.AggregateID, dl)
}

func (p *Publisher) produce(ctx context.Context, topic, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("broker: encode envelope: %w", err)
	}
	record := kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	return p.client.ProduceSync(ctx, &record).FirstErr()
}
