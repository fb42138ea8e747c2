package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/breath"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ breath.Channel = &Channel{}
var _ breath.Opener = Bus{}

// highest 10-bit address
const maxAddress = 0x3FF

// Bus opens Linux i2c-dev buses through periph.io.
type Bus struct {
	// Device is the periph bus name, e.g. "1" or "/dev/i2c-1". Empty selects the first bus.
	Device string
	// Speed is applied after opening when not zero.
	Speed physic.Frequency
}

func (b Bus) Open(ctx context.Context) (breath.Channel, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(b.Device)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %q: %w", b.Device, err)
	}
	ch := NewChannel(bus)
	if b.Speed != 0 {
		err = ch.SetSpeed(b.Speed)
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
	}
	return ch, nil
}

// Channel addresses a single device on a periph i2c bus.
type Channel struct {
	bus   i2c.BusCloser
	dev   *i2c.Dev
	speed physic.Frequency
}

func NewChannel(bus i2c.BusCloser) *Channel {
	return &Channel{bus: bus}
}

func (c *Channel) SetAddress(ctx context.Context, address uint16) error {
	if address > maxAddress {
		return fmt.Errorf("invalid i2c address %#x", address)
	}
	c.dev = &i2c.Dev{Addr: address, Bus: c.bus}
	return nil
}

func (c *Channel) Read(ctx context.Context, buffer []byte) error {
	if c.dev == nil {
		return breath.ErrNoAddress
	}
	err := c.dev.Tx(nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", c.dev.Addr, err)
	}
	return nil
}

func (c *Channel) SetSpeed(speed physic.Frequency) error {
	err := c.bus.SetSpeed(speed)
	if err != nil {
		return fmt.Errorf("could not set i2c bus speed to %s: %w", speed, err)
	}
	c.speed = speed
	return nil
}

func (c *Channel) Name() string {
	return c.bus.String()
}

// Speed returns the speed set through SetSpeed, i2c-dev cannot report the actual clock.
func (c *Channel) Speed() (physic.Frequency, error) {
	if c.speed == 0 {
		return 0, breath.ErrSpeedUnknown
	}
	return c.speed, nil
}

func (c *Channel) Close() error {
	return c.bus.Close()
}
