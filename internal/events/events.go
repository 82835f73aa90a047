// Package events publishes page scrape notifications for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"linkedin-insights/internal/logger"
)

const TypePageScraped = "page.scraped"

// PageScraped is emitted after a scrape result has been stored.
type PageScraped struct {
	Type      string    `json:"type"`
	PageID    string    `json:"page_id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Posts     int       `json:"posts"`
	Employees int       `json:"employees"`
	Comments  int       `json:"comments"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type Publisher interface {
	PublishPageScraped(ctx context.Context, ev PageScraped) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Snappy,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
	}

	logger.Info("Kafka publisher configured", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{writer: writer, topic: topic}
}

// PublishPageScraped writes the event keyed by page id so events of one page stay ordered.
func (p *KafkaPublisher) PublishPageScraped(ctx context.Context, ev PageScraped) error {
	if ev.Type == "" {
		ev.Type = TypePageScraped
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PageID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPageScraped(context.Context, PageScraped) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher when brokers are set, otherwise a no-op.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
