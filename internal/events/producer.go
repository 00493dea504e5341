package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	InvoiceCreated  = "invoice.created"
	InvoiceUpdated  = "invoice.updated"
	InvoiceDeleted  = "invoice.deleted"
	InvoiceSent     = "invoice.sent"
	InvoiceArchived = "invoice.archived"
)

// InvoiceEvent is the payload written to the invoice topic.
type InvoiceEvent struct {
	Type          string    `json:"type"`
	TenantID      uuid.UUID `json:"tenant_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Status        string    `json:"status,omitempty"`
	Total         float64   `json:"total"`
	ActorID       uuid.UUID `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher is fire-and-forget. Failures are logged, never returned to callers.
type Publisher interface {
	Publish(ctx context.Context, event InvoiceEvent)
	Close()
}

type Producer struct {
	l     *slog.Logger
	w     *kafka.Writer
	topic string
}

func NewProducer(l *slog.Logger, brokers []string, topic string) *Producer {
	l = l.WithGroup("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Logger:                 &infoLogger{l: l},
		ErrorLogger:            &errorLogger{l: l},
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		l:     l,
		w:     w,
		topic: topic,
	}
}

func (p *Producer) Publish(ctx context.Context, event InvoiceEvent) {
	msg, err := newMessage(p.topic, event)
	if err != nil {
		p.l.Error(fmt.Sprintf("marshal event: %s", err))
		return
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.l.Error(fmt.Sprintf("write kafka message: %s", err), "event", event.Type)
	}
}

func (p *Producer) Close() {
	if err := p.w.Close(); err != nil {
		p.l.Error(fmt.Sprintf("close kafka writer: %s", err))
	}
}

// newMessage keys by invoice so a partition sees one invoice's events in order.
func newMessage(topic string, event InvoiceEvent) (kafka.Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: topic,
		Key:   []byte(event.InvoiceID.String()),
		Value: b,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// Nop drops events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, InvoiceEvent) {}
func (Nop) Close() {}

type infoLogger struct {
	l *slog.Logger
}

func (l *infoLogger) Printf(format string, v ...any) {
	l.l.Info(fmt.Sprintf(format, v...))
}

type errorLogger struct {
	l *slog.Logger
}

func (l *errorLogger) Printf(format string, v ...any) {
	l.l.Error(fmt.Sprintf(format, v...))
}
