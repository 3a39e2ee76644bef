package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

type Config struct {
	FromDate string   `yaml:"from_date"`
	ToDate   string   `yaml:"to_date"`
	Interval Duration `yaml:"interval"`

	Sources map[string]ComponentConfig `yaml:"sources"`
	Sinks   map[string]ComponentConfig `yaml:"sinks"`

	Policy  ports.Policy  `yaml:"policy"`
	WAL     WALConfig     `yaml:"wal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ComponentConfig is one named source or sink section. The type field selects
// the implementation; the remaining keys are decoded by that implementation.
type ComponentConfig struct {
	Type    string
	options yaml.Node
}

func (c *ComponentConfig) UnmarshalYAML(value *yaml.Node) error {
	var t struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&t); err != nil {
		return err
	}
	c.Type = t.Type
	c.options = *value
	return nil
}

// Decode unpacks the component's own options into out.
func (c *ComponentConfig) Decode(out any) error {
	if c.options.Kind == 0 {
		return nil
	}
	return c.options.Decode(out)
}

// Duration accepts Go duration strings ("15m", "1h30m") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.FromDate == "" {
		c.FromDate = "today"
	}
	if c.ToDate == "" {
		c.ToDate = "today"
	}
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	if len(c.Sinks) == 0 {
		return fmt.Errorf("at least one sink is required")
	}
	for name, src := range c.Sources {
		if src.Type == "" {
			return fmt.Errorf("source %q: type is required", name)
		}
	}
	for name, snk := range c.Sinks {
		if snk.Type == "" {
			return fmt.Errorf("sink %q: type is required", name)
		}
	}
	if _, err := domain.ResolveWindow(c.FromDate, c.ToDate, time.Now()); err != nil {
		return err
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	return nil
}
