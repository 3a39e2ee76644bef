package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

const sampleConfig = `
from_date: yesterday
to_date: today
interval: 15m

sources:
  national_mix:
    type: eco2mix
    download_folder: /tmp/photon
  grid_strain:
    type: ecowatt
    token: secret

sinks:
  timeseries:
    type: influxdb
    host: http://localhost:8086
    token: influx-token
    org: photon
    bucket: energy
  debug:
    type: console

policy:
  max_batch_size: 500
  on_queue_full: drop

wal:
  dir: /var/lib/photon/wal

log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photon.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.FromDate != "yesterday" || cfg.ToDate != "today" {
		t.Fatalf("window specs = %q..%q", cfg.FromDate, cfg.ToDate)
	}
	if time.Duration(cfg.Interval) != 15*time.Minute {
		t.Fatalf("interval = %s", time.Duration(cfg.Interval))
	}
	if len(cfg.Sources) != 2 || len(cfg.Sinks) != 2 {
		t.Fatalf("components = %d sources, %d sinks", len(cfg.Sources), len(cfg.Sinks))
	}
	if cfg.Sources["national_mix"].Type != "eco2mix" {
		t.Fatalf("source type = %q", cfg.Sources["national_mix"].Type)
	}

	// explicit values survive, untouched fields get defaults
	if cfg.Policy.MaxBatchSize != 500 || cfg.Policy.OnQueueFull != "drop" {
		t.Fatalf("policy = %+v", cfg.Policy)
	}
	if cfg.Policy.MaxQueueLen != 100_000 || cfg.Policy.OnWALFull != "block" {
		t.Fatalf("policy defaults = %+v", cfg.Policy)
	}
	if cfg.WAL.Dir != "/var/lib/photon/wal" {
		t.Fatalf("wal dir = %q", cfg.WAL.Dir)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("metrics addr = %q", cfg.Metrics.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestComponentConfigDecode(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var opts struct {
		DownloadFolder string `yaml:"download_folder"`
	}
	section := cfg.Sources["national_mix"]
	if err := section.Decode(&opts); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if opts.DownloadFolder != "/tmp/photon" {
		t.Fatalf("download_folder = %q", opts.DownloadFolder)
	}
}

func TestLoadAppliesWindowDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
sources:
  s: {type: eco2mix}
sinks:
  d: {type: console}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FromDate != "today" || cfg.ToDate != "today" {
		t.Fatalf("window defaults = %q..%q", cfg.FromDate, cfg.ToDate)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no sources", "sinks:\n  d: {type: console}\n"},
		{"no sinks", "sources:\n  s: {type: eco2mix}\n"},
		{"missing type", "sources:\n  s: {download_folder: /tmp}\nsinks:\n  d: {type: console}\n"},
		{"bad window", "from_date: tomorrow\nsources:\n  s: {type: eco2mix}\nsinks:\n  d: {type: console}\n"},
		{"inverted window", "from_date: today\nto_date: yesterday\nsources:\n  s: {type: eco2mix}\nsinks:\n  d: {type: console}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`1h30m`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if time.Duration(d) != 90*time.Minute {
		t.Fatalf("duration = %s", time.Duration(d))
	}

	if err := yaml.Unmarshal([]byte(`15 minutes`), &d); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
