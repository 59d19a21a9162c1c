package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/location-sitemap/internal/config"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces one message per sitemap entry so downstream indexers and
// cache purgers can react to a regenerated sitemap.
// It implements pipeline.EntryPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes all entries in a single WriteMessages call.
// Messages are keyed by slug so every version of a page lands on one partition.
func (p *Publisher) Publish(ctx context.Context, runID string, entries []sitemap.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(entries))
	for i := range entries {
		msg, err := serializeToMessage(runID, entries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish sitemap entries: %w", err)
	}
	p.logger.Debug("sitemap entries published", "topic", p.writer.Topic, "count", len(msgs), "run_id", runID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a sitemap entry into a Kafka message.
func serializeToMessage(runID string, entry sitemap.Entry) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sitemap entry %q: %w", entry.Identifier, err)
	}
	return kafkago.Message{
		Key:   []byte(entry.Slug),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "priority", Value: []byte(sitemap.FormatPriority(entry.Priority))},
			{Key: "lastmod", Value: []byte(entry.LastMod.Format(sitemap.DateLayout))},
		},
	}, nil
}
