package i2c

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/breath"
	"github.com/mklimuk/breath/pressure"
)

func TestChannel_Read(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x4D, R: []byte{0x08, 0x10}},
		},
	}
	ch := NewChannel(bus)
	ctx := context.Background()

	require.NoError(t, ch.SetAddress(ctx, 0x4D))
	buf := make([]byte, 2)
	require.NoError(t, ch.Read(ctx, buf))
	assert.Equal(t, []byte{0x08, 0x10}, buf)
	assert.NoError(t, ch.Close())
}

func TestChannel_ReadWithoutAddress(t *testing.T) {
	ch := NewChannel(&i2ctest.Playback{})
	err := ch.Read(context.Background(), make([]byte, 2))
	assert.ErrorIs(t, err, breath.ErrNoAddress)
}

func TestChannel_ReadError(t *testing.T) {
	ch := NewChannel(&i2ctest.Playback{DontPanic: true})
	require.NoError(t, ch.SetAddress(context.Background(), 0x4D))
	err := ch.Read(context.Background(), make([]byte, 2))
	assert.Error(t, err)
}

func TestChannel_SetAddress(t *testing.T) {
	ch := NewChannel(&i2ctest.Playback{})
	assert.NoError(t, ch.SetAddress(context.Background(), 0x3FF))
	assert.Error(t, ch.SetAddress(context.Background(), 0x400))
}

func TestChannel_Speed(t *testing.T) {
	ch := NewChannel(&i2ctest.Playback{})
	_, err := ch.Speed()
	assert.ErrorIs(t, err, breath.ErrSpeedUnknown)

	require.NoError(t, ch.SetSpeed(400*physic.KiloHertz))
	speed, err := ch.Speed()
	require.NoError(t, err)
	assert.Equal(t, 400*physic.KiloHertz, speed)
}

func TestPressureSensorOverPlayback(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// baseline: 2148 - 2048 = 100
			{Addr: pressure.Address, R: []byte{0x08, 0x64}},
			// 2908 - 2048 = 860, (860 - 100) / 6 = 126
			{Addr: pressure.Address, R: []byte{0x0B, 0x5C}},
			// 4095 - 2048 = 2047, clamped
			{Addr: pressure.Address, R: []byte{0x0F, 0xFF}},
			// 0 - 2048 = -2048, (-2048 - 100) / 6 = -358
			{Addr: pressure.Address, R: []byte{0x00, 0x00}},
		},
	}
	ctx := context.Background()
	s, err := pressure.Init(ctx, breath.OpenerFunc(func(ctx context.Context) (breath.Channel, error) {
		return NewChannel(bus), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 100, s.Baseline())

	for _, expected := range []int{126, 127, -358} {
		v, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}
	assert.NoError(t, s.Close())
}
