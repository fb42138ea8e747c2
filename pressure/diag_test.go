package pressure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(values ...int) ReadBehaviorFunc {
	i := 0
	return func(ctx context.Context) (int, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

func TestCheckRange_Detected(t *testing.T) {
	s := NewMockSensor(nil, sequence(0, 300, -400, 700, 0))
	var seen []int
	report, err := CheckRange(context.Background(), s, RangeCheck{
		Samples:  10,
		Interval: time.Millisecond,
		OnSample: func(raw int) { seen = append(seen, raw) },
	})
	require.NoError(t, err)
	assert.True(t, report.Detected)
	assert.Equal(t, 4, report.Samples)
	assert.Equal(t, -400, report.Min)
	assert.Equal(t, 700, report.Max)
	assert.Equal(t, []int{0, 300, -400, 700}, seen)
}

func TestCheckRange_NotDetected(t *testing.T) {
	s := NewMockSensor(nil, sequence(-10, 10))
	report, err := CheckRange(context.Background(), s, RangeCheck{Samples: 6, Interval: time.Millisecond})
	require.NoError(t, err)
	assert.False(t, report.Detected)
	assert.Equal(t, 6, report.Samples)
	assert.Equal(t, -10, report.Min)
	assert.Equal(t, 10, report.Max)
}

func TestCheckRange_ReadError(t *testing.T) {
	s := NewMockSensor(nil, func(ctx context.Context) (int, error) { return 0, ErrReadFailure })
	_, err := CheckRange(context.Background(), s, RangeCheck{Samples: 3, Interval: time.Millisecond})
	assert.ErrorIs(t, err, ErrReadFailure)
}

func TestCheckRange_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMockSensor(nil, sequence(0))
	report, err := CheckRange(ctx, s, RangeCheck{Samples: 3, Interval: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Samples)
}

func TestCheckStep(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		samples  int
		detected bool
		taken    int
	}{
		{"both directions", []int{0, 5, 20, 3, -15, 40}, 10, true, 5},
		{"only positive", []int{0, 11, 12}, 6, false, 6},
		{"variation is exclusive", []int{10, -10}, 4, false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMockSensor(sequence(tt.values...), nil)
			report, err := CheckStep(context.Background(), s, StepCheck{Samples: tt.samples, Interval: time.Millisecond})
			require.NoError(t, err)
			assert.Equal(t, tt.detected, report.Detected())
			assert.Equal(t, tt.taken, report.Samples)
		})
	}
}

func TestCheckStep_PeakAndTrough(t *testing.T) {
	s := NewMockSensor(sequence(12, 127, -30), nil)
	report, err := CheckStep(context.Background(), s, StepCheck{Samples: 3, Interval: time.Millisecond})
	require.NoError(t, err)
	assert.True(t, report.Positive)
	assert.True(t, report.Negative)
	assert.Equal(t, 127, report.Peak)
	assert.Equal(t, -30, report.Trough)
}

func TestCheckStep_ReadError(t *testing.T) {
	fail := errors.New("bus gone")
	calls := 0
	s := NewMockSensor(func(ctx context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, fail
		}
		return 20, nil
	}, nil)
	report, err := CheckStep(context.Background(), s, StepCheck{Samples: 5, Interval: time.Millisecond})
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 1, report.Samples)
	assert.True(t, report.Positive)
}
