package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mklimuk/breath/output"
)

type ConsoleOutput struct {
	w io.Writer
}

func NewConsole(w io.Writer) output.Publisher { return &ConsoleOutput{w: w} }

func (c *ConsoleOutput) Publish(ctx context.Context, r output.Reading) error {
	_, err := fmt.Fprintf(c.w, "%s pressure=%d baseline=%d\n", r.Timestamp.Format(time.RFC3339Nano), r.Value, r.Baseline)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
