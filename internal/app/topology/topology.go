// Package topology turns the named source and sink sections of the
// configuration into constructed adapters.
package topology

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/adapters/sink/console"
	"github.com/oktal/photon/internal/adapters/sink/influx"
	kafkasink "github.com/oktal/photon/internal/adapters/sink/kafka"
	"github.com/oktal/photon/internal/adapters/sink/postgres"
	"github.com/oktal/photon/internal/adapters/source/eco2mix"
	"github.com/oktal/photon/internal/adapters/source/ecowatt"
	opcuasrc "github.com/oktal/photon/internal/adapters/source/opcua"
	"github.com/oktal/photon/internal/app/config"
	"github.com/oktal/photon/internal/ports"
)

// Topology is the set of constructed sources and sinks for one runtime.
type Topology struct {
	Sources []ports.NamedSource
	Sinks   []ports.NamedSink

	closers []io.Closer
}

// Build constructs every configured component. Components are created eagerly
// so a bad section fails at startup with the component name in the error.
func Build(cfg *config.Config, log zerolog.Logger) (*Topology, error) {
	t := &Topology{}

	for name, section := range cfg.Sources {
		src, err := buildSource(section, log.With().Str("source", name).Logger())
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		t.Sources = append(t.Sources, ports.NamedSource{Name: name, Source: src})
	}

	for name, section := range cfg.Sinks {
		snk, closer, err := buildSink(section, log.With().Str("sink", name).Logger())
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("sink %q: %w", name, err)
		}
		t.Sinks = append(t.Sinks, ports.NamedSink{Name: name, Sink: snk})
		if closer != nil {
			t.closers = append(t.closers, closer)
		}
	}

	return t, nil
}

// Close releases every sink resource opened by Build.
func (t *Topology) Close() error {
	var errs []error
	for _, c := range t.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildSource(section config.ComponentConfig, log zerolog.Logger) (ports.Source, error) {
	switch section.Type {
	case "eco2mix":
		var cfg eco2mix.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, err
		}
		return eco2mix.New(cfg, log), nil

	case "ecowatt":
		var cfg ecowatt.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, err
		}
		return ecowatt.New(cfg, log)

	case "opcua":
		var cfg opcuasrc.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, err
		}
		return opcuasrc.New(cfg, log)

	default:
		return nil, fmt.Errorf("unknown source type %q", section.Type)
	}
}

func buildSink(section config.ComponentConfig, log zerolog.Logger) (ports.Sink, io.Closer, error) {
	switch section.Type {
	case "influxdb":
		var cfg influx.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, nil, err
		}
		snk, err := influx.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return snk, snk, nil

	case "console":
		return console.New(nil), nil, nil

	case "postgres":
		var cfg postgres.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, nil, err
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("postgres", cfg.ConnString)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(db, cfg.Table), db, nil

	case "kafka":
		var cfg kafkasink.Config
		if err := section.Decode(&cfg); err != nil {
			return nil, nil, err
		}
		snk, err := kafkasink.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return snk, snk, nil

	default:
		return nil, nil, fmt.Errorf("unknown sink type %q", section.Type)
	}
}
