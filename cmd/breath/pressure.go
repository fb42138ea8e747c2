package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/breath/cmd/breath/console"
	"github.com/mklimuk/breath/config"
	"github.com/mklimuk/breath/output"
	outconsole "github.com/mklimuk/breath/output/console"
	"github.com/mklimuk/breath/output/mqtt"
	"github.com/mklimuk/breath/pressure"
	"github.com/mklimuk/breath/stream"
)

var sensorFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "transport",
		Aliases: []string{"t"},
		Usage:   "bus transport: periph, gobot or mcp2221",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "periph bus name, e.g. 1 or /dev/i2c-1",
	},
	&cli.StringFlag{
		Name:  "board",
		Usage: "gobot board: raspi or nanopi",
	},
	&cli.IntFlag{
		Name:  "bus",
		Usage: "gobot i2c bus number",
	},
	&cli.StringFlag{
		Name:  "speed",
		Usage: "bus speed, e.g. 100kHz",
	},
	&cli.IntFlag{
		Name:  "scaling-factor",
		Usage: "divisor applied to the calibrated reading",
	},
	&cli.IntFlag{
		Name:  "upper-bound",
		Usage: "upper clamp of the calibrated reading",
	},
}

var pressureCmd = cli.Command{
	Name:    "pressure",
	Aliases: []string{"p"},
	Usage:   "read the breath pressure sensor",
	Subcommands: []*cli.Command{
		&pressureReadCmd,
		&pressureWatchCmd,
		&pressureRangeCmd,
		&pressureStepCmd,
	},
}

var pressureReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "calibrate and take a single reading",
	Flags:   sensorFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		s, err := openSensor(c, cfg)
		if err != nil {
			return err
		}
		defer closeSensor(s)
		if c.Bool("verbose") {
			console.PInfof(console.PictoGauge, "baseline: %s", console.White(s.Baseline()))
		}
		v, err := s.Read(c.Context)
		if err != nil {
			return console.Exit(1, "error getting pressure read: %s", console.Red(err))
		}
		console.PInfof(console.PictoWind, "%s", console.Pressure(v, cfg.UpperBound))
		return nil
	},
}

var pressureWatchCmd = cli.Command{
	Name:  "watch",
	Usage: "stream readings to the configured outputs until interrupted",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "sampling interval",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "stop after that many readings, 0 streams forever",
		},
		&cli.StringFlag{
			Name:  "mqtt-server",
			Usage: "also publish to this MQTT broker, e.g. tcp://localhost:1883",
		},
		&cli.StringFlag{
			Name:  "mqtt-topic",
			Usage: "MQTT topic used with --mqtt-server",
			Value: mqtt.DefaultTopic,
		},
	}, sensorFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		publishers, err := buildPublishers(cfg, console.Writer())
		defer closePublishers(publishers)
		if err != nil {
			return console.Exit(1, "output initialization error: %s", console.Red(err))
		}
		s, err := openSensor(c, cfg)
		if err != nil {
			return err
		}
		defer closeSensor(s)

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = stream.Run(ctx, s, cfg.Interval, publishers, stream.WithLimit(c.Int("count")))
		if err != nil {
			return console.Exit(1, "streaming error: %s", console.Red(err))
		}
		return nil
	},
}

var checkFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "samples",
		Usage: "maximum number of samples",
		Value: 100,
	},
	&cli.DurationFlag{
		Name:    "interval",
		Aliases: []string{"i"},
		Usage:   "sampling interval",
	},
	&cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "do not ask for confirmation",
	},
}

var pressureRangeCmd = cli.Command{
	Name:  "range",
	Usage: "check that raw readings cover a quarter of the sensor range",
	Flags: append(append([]cli.Flag{
		&cli.IntFlag{
			Name:  "expected",
			Usage: "raw spread to exceed",
			Value: 4096 / 4,
		},
	}, checkFlags...), sensorFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		proceed, err := confirm(c, "Blow and draw on the mouthpiece while sampling. Ready?")
		if err != nil || !proceed {
			return err
		}
		s, err := openSensor(c, cfg)
		if err != nil {
			return err
		}
		defer closeSensor(s)
		report, err := pressure.CheckRange(c.Context, s, pressure.RangeCheck{
			Samples:  c.Int("samples"),
			Interval: cfg.Interval,
			Expected: c.Int("expected"),
			OnSample: func(raw int) {
				console.Printf("raw: %d\n", raw)
			},
		})
		if err != nil {
			return console.Exit(1, "error during range check: %s", console.Red(err))
		}
		console.Printf("min: %s max: %s samples: %d\n", console.White(report.Min), console.White(report.Max), report.Samples)
		if !report.Detected {
			return console.Exit(2, "%s pressure range %d not exceeded", console.PictoStop, c.Int("expected"))
		}
		console.PInfof(console.PictoCheck, "pressure range detected")
		return nil
	},
}

var pressureStepCmd = cli.Command{
	Name:  "step",
	Usage: "check that both blowing and drawing are detected",
	Flags: append(append([]cli.Flag{
		&cli.IntFlag{
			Name:  "variation",
			Usage: "deviation from baseline to detect in both directions",
			Value: 10,
		},
	}, checkFlags...), sensorFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		proceed, err := confirm(c, "Blow and draw air from the mouthpiece. Ready?")
		if err != nil || !proceed {
			return err
		}
		s, err := openSensor(c, cfg)
		if err != nil {
			return err
		}
		defer closeSensor(s)
		variation := c.Int("variation")
		report, err := pressure.CheckStep(c.Context, s, pressure.StepCheck{
			Samples:   c.Int("samples"),
			Interval:  cfg.Interval,
			Variation: variation,
			OnSample: func(v int) {
				switch {
				case v > variation:
					console.Printf("+ pressure: %s\n", console.Pressure(v, cfg.UpperBound))
				case v < -variation:
					console.Printf("- pressure: %s\n", console.Pressure(v, cfg.UpperBound))
				}
			},
		})
		if err != nil {
			return console.Exit(1, "error during step check: %s", console.Red(err))
		}
		console.Printf("peak: %s trough: %s samples: %d\n", console.White(report.Peak), console.White(report.Trough), report.Samples)
		if !report.Detected() {
			return console.Exit(2, "%s positive detected: %t, negative detected: %t", console.PictoStop, report.Positive, report.Negative)
		}
		console.PInfof(console.PictoCheck, "pressure steps detected")
		return nil
	},
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("board") {
		cfg.Board = c.String("board")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	if c.IsSet("speed") {
		cfg.Speed = c.String("speed")
	}
	if c.IsSet("scaling-factor") {
		cfg.ScalingFactor = c.Int("scaling-factor")
	}
	if c.IsSet("upper-bound") {
		cfg.UpperBound = c.Int("upper-bound")
	}
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	if c.IsSet("mqtt-server") {
		cfg.Outputs = append(cfg.Outputs, config.Output{
			Type: config.OutputMQTT,
			MQTT: &config.MQTT{Server: c.String("mqtt-server"), Topic: c.String("mqtt-topic")},
		})
	}
	return cfg, cfg.Validate()
}

func openSensor(c *cli.Context, cfg config.Config) (*pressure.Sensor, error) {
	opener, err := cfg.Opener()
	if err != nil {
		return nil, console.Exit(1, "transport error: %s", console.Red(err))
	}
	s, err := pressure.Init(c.Context, opener, cfg.SensorOptions()...)
	switch {
	case errors.Is(err, pressure.ErrBusUnavailable):
		return nil, console.Exit(3, "%s bus unavailable (is I2C enabled?): %s", console.PictoPlug, console.Red(err))
	case err != nil:
		return nil, console.Exit(1, "sensor initialization error: %s", console.Red(err))
	}
	return s, nil
}

func closeSensor(s *pressure.Sensor) {
	err := s.Close()
	if err != nil {
		console.Errorf("error closing bus: %s", console.Red(err))
	}
}

func buildPublishers(cfg config.Config, w io.Writer) ([]output.Publisher, error) {
	publishers := make([]output.Publisher, 0, len(cfg.Outputs))
	for _, out := range cfg.Outputs {
		switch out.Type {
		case config.OutputConsole:
			publishers = append(publishers, outconsole.NewConsole(w))
		case config.OutputMQTT:
			p, err := mqtt.NewMQTT(*out.MQTT)
			if err != nil {
				return publishers, err
			}
			publishers = append(publishers, p)
		default:
			return publishers, fmt.Errorf("unknown output %q", out.Type)
		}
	}
	return publishers, nil
}

func closePublishers(publishers []output.Publisher) {
	for _, p := range publishers {
		if err := p.Close(); err != nil {
			console.Errorf("error closing output: %s", console.Red(err))
		}
	}
}

// confirm asks before sampling unless --yes is set. It reports whether to proceed.
func confirm(c *cli.Context, question string) (bool, error) {
	if c.Bool("yes") {
		return true, nil
	}
	ok, err := console.Confirm(question)
	if err != nil {
		return false, console.Exit(1, "prompt error: %s", console.Red(err))
	}
	if !ok {
		console.Printf("aborted\n")
	}
	return ok, nil
}
