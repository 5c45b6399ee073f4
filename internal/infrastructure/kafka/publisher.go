package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/render"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits every finished digest as one JSON message keyed by run id.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.DigestPublisher = (*Publisher)(nil)

// NewPublisher builds a synchronous writer for the configured topic.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return newPublisher(writer, cfg.Topic, logger)
}

func newPublisher(w messageWriter, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{writer: w, topic: topic, logger: logger, now: time.Now}
}

// Name identifies the channel in logs.
func (p *Publisher) Name() string { return "kafka" }

// Publish writes the digest JSON to the topic.
func (p *Publisher) Publish(ctx context.Context, digest domain.Digest) error {
	value, err := render.JSON(digest)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(digest.Metadata.RunID),
		Value: value,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "mode", Value: []byte(digest.Metadata.Mode)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write digest to %s: %w", p.topic, err)
	}
	p.logger.Info("digest produced", "topic", p.topic, "run_id", digest.Metadata.RunID, "bytes", len(value))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
