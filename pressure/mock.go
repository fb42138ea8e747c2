package pressure

import (
	"context"
)

// ReadBehaviorFunc returns a reading or an error.
type ReadBehaviorFunc func(ctx context.Context) (int, error)

// MockSensor is a mock pressure sensor driven by behavior functions. It can stand
// in for Sensor wherever hardware is not available.
//
// Example usage:
//
//	// Static calibrated value
//	sensor := NewMockSensor(func(ctx context.Context) (int, error) { return 64, nil }, nil)
//
//	// Ramp
//	v := 0
//	sensor := NewMockSensor(func(ctx context.Context) (int, error) { v++; return v, nil }, nil)
type MockSensor struct {
	readBehavior ReadBehaviorFunc
	rawBehavior  ReadBehaviorFunc
}

// NewMockSensor creates a mock sensor. The read behavior serves Read, the raw
// behavior serves ReadRaw. A nil raw behavior makes ReadRaw return the read
// behavior's value.
func NewMockSensor(readBehavior, rawBehavior ReadBehaviorFunc) *MockSensor {
	if rawBehavior == nil {
		rawBehavior = readBehavior
	}
	return &MockSensor{
		readBehavior: readBehavior,
		rawBehavior:  rawBehavior,
	}
}

func (m *MockSensor) Read(ctx context.Context) (int, error) {
	return m.readBehavior(ctx)
}

func (m *MockSensor) ReadRaw(ctx context.Context) (int, error) {
	return m.rawBehavior(ctx)
}

// Baseline is always zero, mock readings are already calibrated.
func (m *MockSensor) Baseline() int {
	return 0
}

func (m *MockSensor) Close() error {
	return nil
}
