// Package kafka publishes points to a Kafka topic, one JSON message per point
// keyed by the measurement name.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one broker is required")
	}
	if c.Topic == "" {
		return errors.New("topic is required")
	}
	return nil
}

type Sink struct {
	writer *kafka.Writer
}

func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}, nil
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) WriteBatch(ctx context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	msgs, err := Messages(points)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, msgs...)
}

func (s *Sink) Close() error {
	return s.writer.Close()
}

// Messages converts a batch into the Kafka messages WriteBatch publishes.
func Messages(points []*domain.Point) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(points))
	for i, p := range points {
		value, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal point %s: %w", p.Name, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(p.Name),
			Value: value,
		}
	}
	return msgs, nil
}

var _ ports.Sink = (*Sink)(nil)
