package pressure

import (
	"context"
	"math"
	"time"
)

const (
	defaultCheckSamples  = 100
	defaultCheckInterval = 50 * time.Millisecond
	// at least a quarter of the 12-bit output range
	defaultExpectedRange     = 4096 / 4
	defaultExpectedVariation = 10
)

type Reader interface {
	Read(ctx context.Context) (int, error)
}

type RawReader interface {
	ReadRaw(ctx context.Context) (int, error)
}

// RangeCheck configures CheckRange. Zero values fall back to defaults.
type RangeCheck struct {
	Samples  int
	Interval time.Duration
	// Expected is the raw spread that has to be exceeded.
	Expected int
	OnSample func(raw int)
}

type RangeReport struct {
	Min      int
	Max      int
	Samples  int
	Detected bool
}

// CheckRange samples raw readings until their spread exceeds the expected range or
// the sample budget is exhausted. Somebody is expected to blow and draw on the
// mouthpiece while it runs.
func CheckRange(ctx context.Context, reader RawReader, check RangeCheck) (RangeReport, error) {
	if check.Samples <= 0 {
		check.Samples = defaultCheckSamples
	}
	if check.Interval <= 0 {
		check.Interval = defaultCheckInterval
	}
	if check.Expected <= 0 {
		check.Expected = defaultExpectedRange
	}
	report := RangeReport{Min: math.MaxInt, Max: math.MinInt}
	for i := 0; i < check.Samples; i++ {
		if err := sleep(ctx, check.Interval); err != nil {
			return report, err
		}
		raw, err := reader.ReadRaw(ctx)
		if err != nil {
			return report, err
		}
		report.Samples++
		if check.OnSample != nil {
			check.OnSample(raw)
		}
		report.Max = max(report.Max, raw)
		report.Min = min(report.Min, raw)
		if report.Max-report.Min > check.Expected {
			report.Detected = true
			break
		}
	}
	return report, nil
}

// StepCheck configures CheckStep. Zero values fall back to defaults.
type StepCheck struct {
	Samples   int
	Interval  time.Duration
	Variation int
	OnSample  func(value int)
}

type StepReport struct {
	Samples  int
	Positive bool
	Negative bool
	Peak     int
	Trough   int
}

func (r StepReport) Detected() bool {
	return r.Positive && r.Negative
}

// CheckStep samples calibrated readings until both a positive and a negative
// deviation larger than the variation have been seen.
func CheckStep(ctx context.Context, reader Reader, check StepCheck) (StepReport, error) {
	if check.Samples <= 0 {
		check.Samples = defaultCheckSamples
	}
	if check.Interval <= 0 {
		check.Interval = defaultCheckInterval
	}
	if check.Variation <= 0 {
		check.Variation = defaultExpectedVariation
	}
	var report StepReport
	for i := 0; i < check.Samples; i++ {
		value, err := reader.Read(ctx)
		if err != nil {
			return report, err
		}
		report.Samples++
		if check.OnSample != nil {
			check.OnSample(value)
		}
		report.Peak = max(report.Peak, value)
		report.Trough = min(report.Trough, value)
		if value > check.Variation {
			report.Positive = true
		}
		if value < -check.Variation {
			report.Negative = true
		}
		if report.Detected() {
			break
		}
		if err := sleep(ctx, check.Interval); err != nil {
			return report, err
		}
	}
	return report, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
