package pressure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/breath"
)

// Address is the fixed I2C address of the pressure sensor.
const Address = 0x4D

// the sensor outputs a 12-bit unsigned value, centerOffset moves it around zero
const centerOffset = 2048

var ErrBusUnavailable = fmt.Errorf("pressure: i2c bus unavailable")
var ErrConfiguration = fmt.Errorf("pressure: could not configure target address")
var ErrReadFailure = fmt.Errorf("pressure: read failed")

// Sensor represents a 12-bit I2C pressure sensor calibrated against the reading
// taken at initialization.
//
// Usage:
//
//	s, err := pressure.Init(ctx, opener)
//	if err != nil { ... }
//	defer s.Close()
//	v, err := s.Read(ctx)
//
// A Sensor owns its bus channel and is not safe for concurrent use.
type Sensor struct {
	channel  breath.Channel
	baseline int
	config   Config
}

// Init opens the bus, addresses the sensor and captures the baseline from the first
// raw reading. On failure the bus is released and no sensor is returned.
func Init(ctx context.Context, opener breath.Opener, opts ...Option) (*Sensor, error) {
	config := Config{
		ScalingFactor: DefaultScalingFactor,
		UpperBound:    DefaultUpperBound,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.ScalingFactor <= 0 {
		return nil, fmt.Errorf("pressure: scaling factor must be positive, got %d", config.ScalingFactor)
	}

	slog.Debug("I2C: configuring bus")
	channel, err := opener.Open(ctx)
	if err != nil {
		slog.Error("failed to initialize I2C, check that the interface is enabled on the host", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBusUnavailable, err)
	}
	speed, err := channel.Speed()
	if err != nil {
		slog.Debug("I2C: could not get bus speed", "bus", channel.Name(), "error", err)
	} else {
		slog.Debug("I2C: bus created", "bus", channel.Name(), "speed", speed)
	}

	err = channel.SetAddress(ctx, Address)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("%w %#x: %w", ErrConfiguration, Address, err)
	}
	slog.Debug("I2C: target address set", "addr", fmt.Sprintf("%#x", Address))

	baseline, err := readRaw(ctx, channel)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("could not capture baseline: %w", err)
	}
	slog.Debug("I2C: baseline set", "baseline", baseline)

	return &Sensor{
		channel:  channel,
		baseline: baseline,
		config:   config,
	}, nil
}

// Read returns the pressure deviation from the baseline, divided by the scaling
// factor and clamped from above. There is no lower bound.
func (s *Sensor) Read(ctx context.Context) (int, error) {
	raw, err := readRaw(ctx, s.channel)
	if err != nil {
		return 0, err
	}
	return s.scale(raw), nil
}

// ReadRaw returns a single uncalibrated reading. It does not affect the baseline.
func (s *Sensor) ReadRaw(ctx context.Context) (int, error) {
	return readRaw(ctx, s.channel)
}

func (s *Sensor) Baseline() int {
	return s.baseline
}

func (s *Sensor) Config() Config {
	return s.config
}

// Close releases the bus channel.
func (s *Sensor) Close() error {
	return s.channel.Close()
}

func (s *Sensor) scale(raw int) int {
	// integer division truncates toward zero
	return min((raw-s.baseline)/s.config.ScalingFactor, s.config.UpperBound)
}

func readRaw(ctx context.Context, channel breath.BusReader) (int, error) {
	buf := make([]byte, 2)
	err := channel.Read(ctx, buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return decodeRaw(buf), nil
}

// high bits carry status flags expected to be zero, they are not validated
func decodeRaw(buf []byte) int {
	return (int(buf[0])<<8 | int(buf[1])) - centerOffset
}
