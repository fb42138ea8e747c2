package breath

import (
	"context"
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")
var ErrSpeedUnknown = fmt.Errorf("bus speed unknown")
var ErrNoAddress = fmt.Errorf("target address not set")

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type Addresser interface {
	SetAddress(ctx context.Context, address uint16) error
}

// BusInfo exposes bus metadata. It is only meant for diagnostics.
type BusInfo interface {
	Name() string
	Speed() (physic.Frequency, error)
}

// Channel is an open bus channel targeting a single device. A channel is owned
// by exactly one driver and must not be shared between goroutines.
type Channel interface {
	BusReader
	Addresser
	BusInfo
	io.Closer
}

type Opener interface {
	Open(ctx context.Context) (Channel, error)
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Channel, error)

func (f OpenerFunc) Open(ctx context.Context) (Channel, error) {
	return f(ctx)
}
