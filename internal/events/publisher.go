package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/metrics"
)

// messageWriter is the subset of kafka.Writer used by the publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует события в один топик. Ключ сообщения берётся из PartitionKey,
// события одного получателя попадают в одну партицию.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PartitionKey()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(event.EventType, metrics.ResultError).Inc()
		p.log.WithError(err).WithFields(logrus.Fields{
			"topic":      p.topic,
			"event_type": event.EventType,
		}).Error("не удалось опубликовать событие")
		return fmt.Errorf("events: publish to %s: %w", p.topic, err)
	}

	metrics.EventsPublished.WithLabelValues(event.EventType, metrics.ResultOK).Inc()
	p.log.WithFields(logrus.Fields{
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Debug("событие опубликовано")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MemoryPublisher складывает события в память. Используется без Kafka и в тестах.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	metrics.EventsPublished.WithLabelValues(event.EventType, metrics.ResultOK).Inc()
	return nil
}

// Events возвращает копию опубликованных событий.
func (p *MemoryPublisher) Events() []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types возвращает типы опубликованных событий по порядку.
func (p *MemoryPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

func (p *MemoryPublisher) Close() error {
	return nil
}
