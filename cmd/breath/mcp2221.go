package main

import (
	"context"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/breath/adapter"
	"github.com/mklimuk/breath/cmd/breath/console"
)

var indexFlag = &cli.IntFlag{
	Name:  "index",
	Usage: "bridge index as listed by usb detect, -1 expects a single bridge",
	Value: -1,
}

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 bridge maintenance",
	Subcommands: []*cli.Command{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Flags: []cli.Flag{indexFlag},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDeviceIndex(c.Int("index")))
		return printStatus(c.Context, a.Status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Flags: []cli.Flag{indexFlag},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDeviceIndex(c.Int("index")))
		return printStatus(c.Context, a.ReleaseBus)
	},
}

func printStatus(ctx context.Context, fn func(context.Context) (*adapter.MCP2221Status, error)) error {
	status, err := fn(ctx)
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	enc := yaml.NewEncoder(console.Writer())
	defer func() { _ = enc.Close() }()
	err = enc.Encode(status)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	console.Printf("speed: %s\n", status.Speed())
	return nil
}
