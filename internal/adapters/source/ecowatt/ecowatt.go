// Package ecowatt collects the RTE EcoWatt grid-strain signals: one value for
// the day plus one per hour, each grading how tight the French grid is.
package ecowatt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

const (
	defaultSignalsURL = "https://digital.iservices.rte-france.com/open_api/ecowatt/v4/signals"
	sandboxSignalsURL = "https://digital.iservices.rte-france.com/open_api/ecowatt/v4/sandbox/signals"
)

type Config struct {
	// Token is the RTE API access token. TokenFile points at a file holding
	// the token instead (written by rte-refresh-token); it is re-read on
	// every collect so rotation does not require a restart.
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
	Sandbox   bool   `yaml:"sandbox"`
	// BaseURL overrides the signals endpoint (tests).
	BaseURL string `yaml:"base_url"`
}

func (c *Config) Validate() error {
	if c.Token == "" && c.TokenFile == "" {
		return errors.New("either token or token_file is required")
	}
	return nil
}

func (c *Config) url() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Sandbox {
		return sandboxSignalsURL
	}
	return defaultSignalsURL
}

type signalValue struct {
	Hour  int64 `json:"pas"`
	Value int64 `json:"hvalue"`
}

type signal struct {
	Day      time.Time     `json:"jour"`
	DayValue int64         `json:"dvalue"`
	Message  string        `json:"message"`
	Values   []signalValue `json:"values"`
}

type signalsResponse struct {
	Signals []signal `json:"signals"`
}

type Source struct {
	cfg   Config
	log   zerolog.Logger
	httpc *http.Client
}

func New(cfg Config, log zerolog.Logger) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		cfg:   cfg,
		log:   log,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *Source) Collect(ctx context.Context, _ domain.Window) (domain.Batch, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting signals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var signals signalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&signals); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(signals.Signals) == 0 {
		return nil, errors.New("no EcoWatt signal returned from RTE")
	}

	today := signals.Signals[0]
	s.log.Debug().Time("day", today.Day).Int64("dvalue", today.DayValue).
		Int("hourly", len(today.Values)).Msg("received ecowatt signal")

	var points domain.Batch
	points.Add(domain.NewPoint("ecowatt_signal").
		Field("value", domain.Integer(today.DayValue)).
		At(today.Day))

	for _, hourly := range today.Values {
		points.Add(domain.NewPoint("ecowatt_signal").
			Field("value", domain.Integer(hourly.Value)).
			At(today.Day.Add(time.Duration(hourly.Hour) * time.Hour)))
	}

	return points, nil
}

func (s *Source) token() (string, error) {
	if s.cfg.TokenFile != "" {
		data, err := os.ReadFile(s.cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", s.cfg.TokenFile)
		}
		return token, nil
	}
	return s.cfg.Token, nil
}

var _ ports.Source = (*Source)(nil)
