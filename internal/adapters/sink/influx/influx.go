// Package influx writes points to an InfluxDB v2 instance, the primary
// persistence target of the agent.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

type Config struct {
	Host   string `yaml:"host"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Token == "" {
		return errors.New("token is required")
	}
	if c.Org == "" {
		return errors.New("org is required")
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	return nil
}

type Sink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	log    zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := influxdb2.NewClient(cfg.Host, cfg.Token)
	return &Sink{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:    log,
	}, nil
}

func (s *Sink) Name() string { return "influxdb" }

func (s *Sink) WriteBatch(ctx context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	now := time.Now().UTC()
	out := make([]*write.Point, len(points))
	for i, p := range points {
		ts := p.Timestamp
		if ts.IsZero() {
			ts = now
		}
		out[i] = influxdb2.NewPoint(p.Name, p.Tags, fieldMap(p), ts)
	}

	s.log.Debug().Int("points", len(out)).Msg("writing points to influxdb")

	if err := s.write.WritePoint(ctx, out...); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

// Close flushes the underlying client; the sink must not be used afterwards.
func (s *Sink) Close() error {
	s.client.Close()
	return nil
}

func fieldMap(p *domain.Point) map[string]any {
	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v.Interface()
	}
	return fields
}

var _ ports.Sink = (*Sink)(nil)
