package pressure

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/breath"
)

// MockChannel is a mock implementation of breath.Channel using testify/mock
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Read(ctx context.Context, buffer []byte) error {
	args := m.Called(ctx, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockChannel) SetAddress(ctx context.Context, address uint16) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockChannel) Name() string {
	return m.Called().String(0)
}

func (m *MockChannel) Speed() (physic.Frequency, error) {
	args := m.Called()
	return args.Get(0).(physic.Frequency), args.Error(1)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func newMockChannel() *MockChannel {
	ch := new(MockChannel)
	ch.On("Name").Return("mock").Maybe()
	ch.On("Speed").Return(100*physic.KiloHertz, nil).Maybe()
	ch.On("Close").Return(nil).Maybe()
	return ch
}

func opener(ch breath.Channel) breath.Opener {
	return breath.OpenerFunc(func(ctx context.Context) (breath.Channel, error) {
		return ch, nil
	})
}

// rawBytes encodes a raw reading the way the sensor puts it on the wire
func rawBytes(raw int) []byte {
	v := uint16(raw + centerOffset)
	return []byte{byte(v >> 8), byte(v)}
}

func initSensor(t *testing.T, ch *MockChannel, baseline int, opts ...Option) *Sensor {
	t.Helper()
	ch.On("SetAddress", mock.Anything, uint16(Address)).Return(nil).Once()
	ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(baseline), nil).Once()
	s, err := Init(context.Background(), opener(ch), opts...)
	require.NoError(t, err)
	return s
}

func TestDecodeRaw(t *testing.T) {
	tests := []struct {
		given    []byte
		expected int
	}{
		{[]byte{0x08, 0x00}, 0},
		{[]byte{0x00, 0x00}, -2048},
		{[]byte{0x0F, 0xFF}, 2047},
		{[]byte{0x0B, 0x00}, 768},
		{[]byte{0x05, 0x00}, -768},
		{[]byte{0xFF, 0xFF}, 63487},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, decodeRaw(test.given))
		})
	}
}

func TestInit_CapturesBaseline(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, 137)

	assert.Equal(t, 137, s.Baseline())
	assert.Equal(t, Config{ScalingFactor: DefaultScalingFactor, UpperBound: DefaultUpperBound}, s.Config())
	ch.AssertCalled(t, "SetAddress", mock.Anything, uint16(0x4D))
	ch.AssertNumberOfCalls(t, "Read", 1)
	ch.AssertNotCalled(t, "Close")
}

func TestInit_BusUnavailable(t *testing.T) {
	busErr := errors.New("open /dev/i2c-1: no such file or directory")
	s, err := Init(context.Background(), breath.OpenerFunc(func(ctx context.Context) (breath.Channel, error) {
		return nil, busErr
	}))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrBusUnavailable)
	assert.ErrorIs(t, err, busErr)
}

func TestInit_ConfigurationError(t *testing.T) {
	ch := newMockChannel()
	ch.On("SetAddress", mock.Anything, uint16(Address)).Return(errors.New("ioctl failed")).Once()

	s, err := Init(context.Background(), opener(ch))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrReadFailure)
	ch.AssertCalled(t, "Close")
	ch.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
}

func TestInit_BaselineReadFailure(t *testing.T) {
	ch := newMockChannel()
	ch.On("SetAddress", mock.Anything, uint16(Address)).Return(nil).Once()
	ch.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("nack")).Once()

	s, err := Init(context.Background(), opener(ch))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrReadFailure)
	ch.AssertCalled(t, "Close")
}

func TestInit_SpeedFailureIsNotFatal(t *testing.T) {
	ch := new(MockChannel)
	ch.On("Name").Return("mock")
	ch.On("Speed").Return(physic.Frequency(0), breath.ErrSpeedUnknown)
	s := initSensor(t, ch, 0)
	assert.Equal(t, 0, s.Baseline())
}

func TestInit_RejectsScalingFactor(t *testing.T) {
	for _, factor := range []int{0, -6} {
		opened := false
		s, err := Init(context.Background(), breath.OpenerFunc(func(ctx context.Context) (breath.Channel, error) {
			opened = true
			return newMockChannel(), nil
		}), WithScalingFactor(factor))
		assert.Nil(t, s)
		assert.Error(t, err)
		assert.False(t, opened, "bus must not be opened with invalid options")
	}
}

func TestSensor_Read(t *testing.T) {
	tests := []struct {
		name     string
		baseline int
		raw      int
		expected int
	}{
		{"zero deviation", 0, 0, 0},
		{"clamped above bound", 0, 768, 127},
		{"exactly at bound", 0, 762, 127},
		{"just below bound", 0, 761, 126},
		{"negative not clamped", 0, -768, -128},
		{"truncates toward zero positive", 0, 11, 1},
		{"truncates toward zero negative", 0, -11, -1},
		{"small negative truncates to zero", 0, -5, 0},
		{"relative to baseline", 100, 160, 10},
		{"below baseline", 100, 40, -10},
		{"full negative range", 2047, -2048, -682},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newMockChannel()
			s := initSensor(t, ch, tt.baseline)
			ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(tt.raw), nil).Once()

			v, err := s.Read(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
			assert.Equal(t, tt.baseline, s.Baseline())
		})
	}
}

func TestSensor_ReadWithOptions(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, 0, WithScalingFactor(4), WithUpperBound(100))

	ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(200), nil).Once()
	v, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(800), nil).Once()
	v, err = s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, v)
}

func TestSensor_ReadFailure(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, 42)
	busErr := errors.New("remote I/O error")
	ch.On("Read", mock.Anything, mock.Anything).Return(nil, busErr).Once()

	v, err := s.Read(context.Background())
	assert.ErrorIs(t, err, ErrReadFailure)
	assert.ErrorIs(t, err, busErr)
	assert.Equal(t, 0, v)
	assert.Equal(t, 42, s.Baseline())

	// no stale value is served after a failure
	ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(48), nil).Once()
	v, err = s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSensor_RepeatedReads(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, -300)
	ch.On("Read", mock.Anything, mock.Anything).Return(rawBytes(0), nil).Times(5)

	for i := 0; i < 5; i++ {
		v, err := s.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 50, v)
		assert.Equal(t, -300, s.Baseline())
	}
	ch.AssertNumberOfCalls(t, "Read", 6)
}

func TestSensor_ReadRaw(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, 10)
	ch.On("Read", mock.Anything, mock.Anything).Return([]byte{0x08, 0x00}, nil).Once()

	raw, err := s.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, raw)
	assert.Equal(t, 10, s.Baseline())
}

func TestSensor_Close(t *testing.T) {
	ch := newMockChannel()
	s := initSensor(t, ch, 0)
	require.NoError(t, s.Close())
	ch.AssertCalled(t, "Close")
}
