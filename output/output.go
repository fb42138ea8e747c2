package output

import (
	"context"
	"time"
)

// Reading is a calibrated pressure sample ready to be published.
type Reading struct {
	Value     int       `json:"value"`
	Baseline  int       `json:"baseline"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, r Reading) error
	Close() error
}

// helper constructors are in subpackages
