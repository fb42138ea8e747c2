// Package board opens I2C channels through gobot platform adaptors. It covers
// boards where the bus is exposed by a gobot platform rather than plain i2c-dev,
// e.g. the Raspberry Pi or the NanoPi NEO.
package board

import (
	"context"
	"fmt"
	"log/slog"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/breath"
)

const (
	Raspi  = "raspi"
	NanoPi = "nanopi"
)

// DefaultBus selects the adaptor's default I2C bus.
const DefaultBus = -1

var ErrUnknownBoard = fmt.Errorf("unknown board")

var _ breath.Channel = &Channel{}
var _ breath.Opener = Board{}

type adaptor interface {
	i2c.Connector
	Connect() error
	Finalize() error
}

type Board struct {
	// Name selects the gobot platform, Raspi or NanoPi.
	Name string
	// Bus is the I2C bus number, DefaultBus selects the adaptor default.
	Bus int
}

func newAdaptor(name string) (adaptor, error) {
	switch name {
	case Raspi:
		return raspi.NewAdaptor(), nil
	case NanoPi:
		return nanopi.NewNeoAdaptor(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
	}
}

func (b Board) Open(ctx context.Context) (breath.Channel, error) {
	a, err := newAdaptor(b.Name)
	if err != nil {
		return nil, err
	}
	err = a.Connect()
	if err != nil {
		return nil, fmt.Errorf("%s adaptor connect error: %w", b.Name, err)
	}
	bus := b.Bus
	if bus == DefaultBus {
		bus = a.DefaultI2cBus()
	}
	slog.Debug("gobot adaptor connected", "board", b.Name, "bus", bus)
	return newChannel(a, b.Name, bus), nil
}

// Channel reads from a single device through a gobot I2C connection.
type Channel struct {
	adaptor adaptor
	board   string
	bus     int
	conn    i2c.Connection
}

func newChannel(a adaptor, board string, bus int) *Channel {
	return &Channel{adaptor: a, board: board, bus: bus}
}

func (c *Channel) SetAddress(ctx context.Context, address uint16) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	conn, err := c.adaptor.GetI2cConnection(int(address), c.bus)
	if err != nil {
		return fmt.Errorf("could not get i2c connection to %#x on bus %d: %w", address, c.bus, err)
	}
	c.conn = conn
	return nil
}

func (c *Channel) Read(ctx context.Context, buffer []byte) error {
	if c.conn == nil {
		return breath.ErrNoAddress
	}
	n, err := c.conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read: expected %d bytes, got %d", len(buffer), n)
	}
	return nil
}

func (c *Channel) Name() string {
	return fmt.Sprintf("%s/i2c-%d", c.board, c.bus)
}

// Speed is not exposed by gobot adaptors.
func (c *Channel) Speed() (physic.Frequency, error) {
	return 0, breath.ErrSpeedUnknown
}

func (c *Channel) Close() error {
	var connErr error
	if c.conn != nil {
		connErr = c.conn.Close()
		c.conn = nil
	}
	err := c.adaptor.Finalize()
	if connErr != nil {
		return fmt.Errorf("could not close i2c connection: %w", connErr)
	}
	if err != nil {
		return fmt.Errorf("could not finalize %s adaptor: %w", c.board, err)
	}
	return nil
}
