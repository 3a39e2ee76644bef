package topology

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/oktal/photon/internal/app/config"
)

func loadConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	cfg.ApplyDefaults()
	return &cfg
}

func TestBuildConstructsComponents(t *testing.T) {
	cfg := loadConfig(t, `
sources:
  national_mix:
    type: eco2mix
  grid_strain:
    type: ecowatt
    token: secret
sinks:
  debug:
    type: console
`)

	topo, err := Build(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer topo.Close()

	if len(topo.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(topo.Sources))
	}
	if len(topo.Sinks) != 1 {
		t.Fatalf("expected 1 sink, got %d", len(topo.Sinks))
	}

	names := map[string]bool{}
	for _, src := range topo.Sources {
		names[src.Name] = true
	}
	if !names["national_mix"] || !names["grid_strain"] {
		t.Fatalf("unexpected source names %v", names)
	}
}

func TestBuildRejectsUnknownSourceType(t *testing.T) {
	cfg := loadConfig(t, `
sources:
  s:
    type: modbus
sinks:
  d:
    type: console
`)

	_, err := Build(cfg, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for unknown source type")
	}
	if !strings.Contains(err.Error(), `source "s"`) {
		t.Fatalf("error should name the component: %v", err)
	}
}

func TestBuildRejectsUnknownSinkType(t *testing.T) {
	cfg := loadConfig(t, `
sources:
  s:
    type: eco2mix
sinks:
  d:
    type: cassandra
`)

	if _, err := Build(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown sink type")
	}
}

func TestBuildPropagatesComponentValidation(t *testing.T) {
	// ecowatt requires a token or token_file
	cfg := loadConfig(t, `
sources:
  grid_strain:
    type: ecowatt
sinks:
  d:
    type: console
`)

	_, err := Build(cfg, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for missing ecowatt credentials")
	}
	if !strings.Contains(err.Error(), `source "grid_strain"`) {
		t.Fatalf("error should name the component: %v", err)
	}
}

func TestBuildKafkaSinkValidation(t *testing.T) {
	cfg := loadConfig(t, `
sources:
  s:
    type: eco2mix
sinks:
  broker:
    type: kafka
    topic: photon
`)

	if _, err := Build(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for kafka sink without brokers")
	}
}
