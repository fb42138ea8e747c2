// Package stream samples a sensor at a fixed interval and fans the readings out
// to publishers.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/breath/output"
)

type Sensor interface {
	Read(ctx context.Context) (int, error)
	Baseline() int
}

type Opts struct {
	// Limit stops the loop after that many samples, zero means no limit.
	Limit int
	Now   func() time.Time
}

type Opt func(*Opts)

func WithLimit(limit int) Opt {
	return func(o *Opts) {
		o.Limit = limit
	}
}

func WithClock(now func() time.Time) Opt {
	return func(o *Opts) {
		o.Now = now
	}
}

// Run reads the sensor every interval and publishes each reading to all publishers.
// It returns nil when ctx is done or the sample limit is reached, and the first
// read or publish error otherwise. Publishers are not closed.
func Run(ctx context.Context, sensor Sensor, interval time.Duration, publishers []output.Publisher, opts ...Opt) error {
	if interval <= 0 {
		return fmt.Errorf("stream: interval must be positive, got %s", interval)
	}
	o := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	samples := 0
	for ctx.Err() == nil {
		value, err := sensor.Read(ctx)
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		r := output.Reading{Value: value, Baseline: sensor.Baseline(), Timestamp: o.Now()}
		for _, p := range publishers {
			err = p.Publish(ctx, r)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("stream: publish failed: %w", err)
			}
		}
		samples++
		if o.Limit > 0 && samples >= o.Limit {
			slog.Debug("stream sample limit reached", "samples", samples)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
