package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/breath/adapter"
	"github.com/mklimuk/breath/cmd/breath/console"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "inspect USB to I2C bridges",
	Subcommands: []*cli.Command{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all HID devices",
	Action: func(c *cli.Context) error {
		if !hid.Supported() {
			return console.Exit(1, "HID is not supported on this platform")
		}
		printDevices(console.Writer(), hid.Enumerate(0, 0))
		return nil
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list attached MCP2221 bridges",
	Action: func(c *cli.Context) error {
		devices := adapter.Detect()
		if len(devices) == 0 {
			return console.Exit(1, "%s no MCP2221 bridge found", console.PictoPlug)
		}
		printDevices(console.Writer(), devices)
		return nil
	},
}

func printDevices(out io.Writer, devices []hid.DeviceInfo) {
	w := tabwriter.NewWriter(out, 24, 0, 1, ' ', 0)
	_, _ = fmt.Fprintf(w, "INDEX\tPATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
	for i, dev := range devices {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%#x\t%#x\t%s\t%s\n",
			i, dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
	}
	_ = w.Flush()
}
