// Package opcua reads live equipment values (smart meters, inverters) from an
// OPC UA server once per collection cycle.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// Config captures the details required to open an OPC UA session.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	Nodes           []NodeConfig  `yaml:"nodes"`
}

// NodeConfig defines one monitored node.
type NodeConfig struct {
	NodeID      string `yaml:"node_id"`
	Measurement string `yaml:"measurement"`
	Field       string `yaml:"field"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Photon"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	for i := range c.Nodes {
		if c.Nodes[i].Measurement == "" {
			c.Nodes[i].Measurement = c.Nodes[i].NodeID
		}
		if c.Nodes[i].Field == "" {
			c.Nodes[i].Field = "value"
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	return nil
}

type Source struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{cfg: cfg, log: log}, nil
}

// Collect connects, reads the value attribute of every configured node, and
// closes the session. The collection window does not apply to live readout.
func (s *Source) Collect(ctx context.Context, _ domain.Window) (domain.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	ids := make([]*ua.NodeID, len(s.cfg.Nodes))
	for i, node := range s.cfg.Nodes {
		id, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			return nil, fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		ids[i] = id
	}

	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	defer client.Close(ctx)

	req := &ua.ReadRequest{
		MaxAge:             2000,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	}
	for _, id := range ids {
		req.NodesToRead = append(req.NodesToRead, &ua.ReadValueID{
			NodeID:      id,
			AttributeID: ua.AttributeIDValue,
		})
	}

	resp, err := client.Read(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("opcua read: %w", err)
	}
	if len(resp.Results) != len(s.cfg.Nodes) {
		return nil, fmt.Errorf("opcua read returned %d results for %d nodes", len(resp.Results), len(s.cfg.Nodes))
	}

	now := time.Now().UTC()
	var points domain.Batch
	for i, dv := range resp.Results {
		node := s.cfg.Nodes[i]
		if dv.Status != ua.StatusOK {
			s.log.Warn().Str("node", node.NodeID).Str("status", dv.Status.Error()).Msg("skipping node with bad status")
			continue
		}
		value, ok := variantToValue(dv.Value)
		if !ok {
			s.log.Warn().Str("node", node.NodeID).Msg("skipping node with unsupported value type")
			continue
		}

		ts := dv.ServerTimestamp
		if ts.IsZero() {
			ts = dv.SourceTimestamp
		}
		if ts.IsZero() {
			ts = now
		}

		points.Add(domain.NewPoint(node.Measurement).
			Tag("node", node.NodeID).
			Field(node.Field, value).
			At(ts))
	}

	return points, nil
}

func (s *Source) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
	}

	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	return opts
}

func variantToValue(v *ua.Variant) (domain.Value, bool) {
	if v == nil {
		return domain.Value{}, false
	}

	switch val := v.Value().(type) {
	case float32:
		return domain.Float(float64(val)), true
	case float64:
		return domain.Float(val), true
	case int8:
		return domain.Integer(int64(val)), true
	case uint8:
		return domain.Integer(int64(val)), true
	case int16:
		return domain.Integer(int64(val)), true
	case uint16:
		return domain.Integer(int64(val)), true
	case int32:
		return domain.Integer(int64(val)), true
	case uint32:
		return domain.Integer(int64(val)), true
	case int64:
		return domain.Integer(val), true
	case uint64:
		return domain.Integer(int64(val)), true
	case bool:
		return domain.Boolean(val), true
	case string:
		return domain.String(val), true
	default:
		return domain.Value{}, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Source = (*Source)(nil)
