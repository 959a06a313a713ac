// Package consumer reads proxy events from Kafka and hands them to a sink.
package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Sink receives one raw event. Errors are logged and the message is not redelivered.
type Sink func(ctx context.Context, value []byte) error

const readRetryDelay = time.Second

// Config configures NewKafkaReader.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaReader returns a consumer-group reader with commit-on-read semantics.
func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads until ctx is done or the reader is closed (io.EOF). Each sink call gets its own timeout.
func Run(ctx context.Context, reader MessageReader, sink Sink, sinkTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.WarnContext(ctx, "consumer: kafka read error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}

		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := sink(sinkCtx, msg.Value); err != nil {
			logger.WarnContext(ctx, "consumer: sink failed",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
		cancel()
	}
}
