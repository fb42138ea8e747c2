// Package config holds the breath CLI configuration. Values come from a YAML file
// and may be overridden by command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/breath"
	"github.com/mklimuk/breath/adapter"
	"github.com/mklimuk/breath/board"
	"github.com/mklimuk/breath/i2c"
	"github.com/mklimuk/breath/pressure"
)

// Build metadata, injected at link time.
var (
	Version string
	Commit  string
	Date    string
)

const (
	TransportPeriph  = "periph"
	TransportGobot   = "gobot"
	TransportMCP2221 = "mcp2221"
)

const (
	OutputConsole = "console"
	OutputMQTT    = "mqtt"
)

type MQTT struct {
	Server   string `yaml:"server"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

type Output struct {
	Type string `yaml:"type"`
	MQTT *MQTT  `yaml:"mqtt,omitempty"`
}

type Config struct {
	// Transport is one of periph, gobot or mcp2221.
	Transport string `yaml:"transport"`
	// Device is the periph bus name, empty opens the first bus.
	Device string `yaml:"device"`
	// Board and Bus select the gobot platform and bus number.
	Board string `yaml:"board"`
	Bus   int    `yaml:"bus"`
	// Speed is a periph frequency string, e.g. 100kHz. Empty keeps the bus default.
	Speed string `yaml:"speed"`
	// AdapterIndex selects the MCP2221 bridge, -1 expects a single one.
	AdapterIndex  int           `yaml:"adapter_index"`
	ScalingFactor int           `yaml:"scaling_factor"`
	UpperBound    int           `yaml:"upper_bound"`
	Interval      time.Duration `yaml:"interval"`
	Outputs       []Output      `yaml:"outputs"`
}

func Default() Config {
	return Config{
		Transport:     TransportPeriph,
		Board:         board.Raspi,
		Bus:           board.DefaultBus,
		AdapterIndex:  -1,
		ScalingFactor: pressure.DefaultScalingFactor,
		UpperBound:    pressure.DefaultUpperBound,
		Interval:      50 * time.Millisecond,
		Outputs:       []Output{{Type: OutputConsole}},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportPeriph, TransportGobot, TransportMCP2221:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Transport == TransportGobot {
		switch c.Board {
		case board.Raspi, board.NanoPi:
		default:
			return fmt.Errorf("%w: %q", board.ErrUnknownBoard, c.Board)
		}
	}
	if c.ScalingFactor <= 0 {
		return fmt.Errorf("scaling_factor must be positive, got %d", c.ScalingFactor)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if _, err := c.speed(); err != nil {
		return err
	}
	for i, out := range c.Outputs {
		switch out.Type {
		case OutputConsole:
		case OutputMQTT:
			if out.MQTT == nil || out.MQTT.Server == "" {
				return fmt.Errorf("output %d: mqtt server is required", i)
			}
			if out.MQTT.QoS > 2 {
				return fmt.Errorf("output %d: invalid mqtt qos %d", i, out.MQTT.QoS)
			}
		default:
			return fmt.Errorf("output %d: unknown type %q", i, out.Type)
		}
	}
	return nil
}

func (c Config) speed() (physic.Frequency, error) {
	var f physic.Frequency
	if c.Speed == "" {
		return 0, nil
	}
	if err := f.Set(c.Speed); err != nil {
		return 0, fmt.Errorf("invalid speed %q: %w", c.Speed, err)
	}
	return f, nil
}

// Opener returns the bus opener for the configured transport.
func (c Config) Opener() (breath.Opener, error) {
	switch c.Transport {
	case TransportPeriph:
		speed, err := c.speed()
		if err != nil {
			return nil, err
		}
		return i2c.Bus{Device: c.Device, Speed: speed}, nil
	case TransportGobot:
		return board.Board{Name: c.Board, Bus: c.Bus}, nil
	case TransportMCP2221:
		return adapter.NewMCP2221(adapter.WithDeviceIndex(c.AdapterIndex)), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}

// SensorOptions maps the scaling settings to driver options.
func (c Config) SensorOptions() []pressure.Option {
	return []pressure.Option{
		pressure.WithScalingFactor(c.ScalingFactor),
		pressure.WithUpperBound(c.UpperBound),
	}
}
