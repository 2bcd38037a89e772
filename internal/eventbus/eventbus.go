// Package eventbus implements the Event Bus (§2 A7): best-effort async
// publication of Search Log entries and Ingestion events onto Kafka topics,
// for downstream analytics/alerting consumers outside this service's own
// request path. Grounded on the teacher's Kafka wiring in
// internal/orchestrator/kafka.go and cmd/orchestrator/main.go (writer
// construction, topic configuration), generalized from the teacher's
// command/response/DLQ workflow transport down to a plain fire-and-forget
// publisher for two topics.
package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
)

const component = "eventbus"

// Writer is the subset of kafka.Writer this package drives, narrowed so
// tests can supply a fake instead of a live broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher fans Search Log entries and Ingestion events out to Kafka. A
// nil/zero-value Publisher (no brokers configured) makes every Publish* call
// a no-op: the event bus is analytics plumbing, never a dependency the
// orchestrator or ingestion pipeline can fail on.
type Publisher struct {
	SearchLogs  Writer
	Ingestion   Writer
}

// New builds a Publisher from cfg. Returns a zero-value Publisher (every
// Publish* a no-op) when cfg.Brokers is empty.
func New(cfg config.KafkaConfig) *Publisher {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return &Publisher{}
	}
	return &Publisher{
		SearchLogs: newWriter(brokers, cfg.SearchLogTopic),
		Ingestion:  newWriter(brokers, cfg.IngestionTopic),
	}
}

func newWriter(brokers []string, topic string) Writer {
	if topic == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
	}
}

func splitBrokers(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PublishSearchLog emits a Search Log entry onto the search-log topic.
func (p *Publisher) PublishSearchLog(ctx context.Context, entry domain.SearchLog) error {
	if p == nil || p.SearchLogs == nil {
		return nil
	}
	return publish(ctx, p.SearchLogs, entry.SessionID, entry)
}

// PublishIngestionEvent emits a Pending Update onto the ingestion topic.
func (p *Publisher) PublishIngestionEvent(ctx context.Context, update domain.PendingUpdate) error {
	if p == nil || p.Ingestion == nil {
		return nil
	}
	return publish(ctx, p.Ingestion, update.SourceID, update)
}

func publish(ctx context.Context, w Writer, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	msg := kafka.Message{Value: body, Time: time.Now()}
	if key != "" {
		msg.Key = []byte(key)
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// Close releases both underlying writers. Safe to call on a zero-value
// Publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var first error
	if p.SearchLogs != nil {
		if err := p.SearchLogs.Close(); err != nil && first == nil {
			first = err
		}
	}
	if p.Ingestion != nil {
		if err := p.Ingestion.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
