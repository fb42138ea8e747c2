package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/breath"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// MCP2221 I2C engine clock, the bus speed is clock / (divider + 3)
const engineClock = 12 * physic.MegaHertz

const reportSize = 64

// command codes
const (
	cmdStatus        = 0x10
	cmdReadData      = 0x91
	cmdGetReadData   = 0x40
	subCmdCancelXfer = 0x10
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var _ breath.Channel = &MCP2221{}
var _ breath.Opener = &MCP2221{}

type device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

// Speed derives the I2C clock from the speed divider.
func (s *MCP2221Status) Speed() physic.Frequency {
	return engineClock / physic.Frequency(s.I2CSpeedDivider+3)
}

// MCP2221 is a USB to I2C bridge talking HID reports. Each command opens the
// device, writes a 64-byte report and reads the 64-byte response.
type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	index        int
	address      byte
	addressSet   bool
	open         func(index int) (device, error)
}

type MCP2221Opt func(*MCP2221)

// WithDeviceIndex selects the bridge when more than one is attached.
func WithDeviceIndex(index int) MCP2221Opt {
	return func(d *MCP2221) {
		d.index = index
	}
}

func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		index:        -1,
		open:         openHID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open checks the bridge is attached. The HID handle itself is only held for the
// duration of a command.
func (d *MCP2221) Open(ctx context.Context) (breath.Channel, error) {
	_, err := d.Status(ctx)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *MCP2221) SetAddress(ctx context.Context, address uint16) error {
	if address > 0x7F {
		return fmt.Errorf("MCP2221 supports 7-bit addresses only, got %#x", address)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.address = byte(address)
	d.addressSet = true
	return nil
}

func (d *MCP2221) Read(ctx context.Context, buffer []byte) error {
	d.mx.Lock()
	addressSet := d.addressSet
	address := d.address
	d.mx.Unlock()
	if !addressSet {
		return breath.ErrNoAddress
	}
	return d.ReadFromAddr(ctx, address, buffer)
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdReadData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "status", d.response[1])
		return breath.ErrBusBusy
	}
	resetBuffer(d.request)
	d.request[0] = cmdGetReadData
	resetBuffer(d.response)
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) Name() string {
	if d.index < 0 {
		return "mcp2221"
	}
	return fmt.Sprintf("mcp2221-%d", d.index)
}

func (d *MCP2221) Speed() (physic.Frequency, error) {
	status, err := d.Status(context.Background())
	if err != nil {
		return 0, err
	}
	return status.Speed(), nil
}

// Close cancels any pending transfer and frees the bus.
func (d *MCP2221) Close() error {
	_, err := d.ReleaseBus(context.Background())
	return err
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = subCmdCancelXfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		ReadPending:            int(buffer[25]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
	}
}

func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open(d.index)
	if err != nil {
		return err
	}
	defer func() {
		err := dev.Close()
		if err != nil {
			slog.Warn("could not close HID device", "error", err)
		}
	}()
	debug := slog.Default().Enabled(ctx, slog.LevelDebug)
	if debug {
		slog.Debug("sending message to adapter", "report", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-time.After(d.responseWait):
	case <-ctx.Done():
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if debug {
		slog.Debug("read message from adapter", "report", hex.EncodeToString(d.response))
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("%w: response to %#x echoed %#x", ErrCommandFailed, d.request[0], d.response[0])
	}
	return nil
}

func openHID(index int) (device, error) {
	devs := Detect()
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if index < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification: %d bridges attached", len(devs))
		}
		index = 0
	}
	if index >= len(devs) {
		return nil, fmt.Errorf("no device with index %d", index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// Detect lists attached MCP2221 bridges.
func Detect() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
