// Package postgres persists points to a Postgres (or TimescaleDB) table with
// tags and fields stored as JSON.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

func (c *Config) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "photon_points"
	}
}

func (c *Config) Validate() error {
	if c.ConnString == "" {
		return errors.New("conn_string is required")
	}
	return nil
}

type Sink struct {
	db    *sql.DB
	table string
}

func New(db *sql.DB, table string) *Sink {
	return &Sink{db: db, table: table}
}

func (s *Sink) Name() string { return "postgres" }

func (s *Sink) WriteBatch(ctx context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	now := time.Now().UTC()

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (name, ts, tags, fields) VALUES ")

	args := make([]any, 0, len(points)*4)
	for i, p := range points {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4))

		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		fields := make(map[string]any, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v.Interface()
		}
		fieldsJSON, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}

		ts := p.Timestamp
		if ts.IsZero() {
			ts = now
		}

		args = append(args, p.Name, ts, tags, fieldsJSON)
	}

	b.WriteString(" ON CONFLICT DO NOTHING")

	_, err := s.db.ExecContext(ctx, b.String(), args...)
	return err
}

var _ ports.Sink = (*Sink)(nil)
