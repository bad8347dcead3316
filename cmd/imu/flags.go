package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/config"
)

var sensorFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter: periph, mcp2221, raspi, nanopi or mock",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "periph bus name (e.g. /dev/i2c-1) or mcp2221 enumeration index",
	},
	&cli.IntFlag{
		Name:  "bus",
		Usage: "I2C bus number",
	},
	&cli.IntFlag{
		Name:  "speed",
		Usage: "I2C clock in kHz (periph and mcp2221 only)",
	},
}

var samplingFlags = []cli.Flag{
	&cli.DurationFlag{
		Name:    "interval",
		Aliases: []string{"i"},
		Usage:   "sampling interval",
	},
	&cli.StringFlag{
		Name:    "telemetry",
		Aliases: []string{"t"},
		Usage:   "mission control address (host:port)",
	},
	&cli.StringFlag{
		Name:  "db",
		Usage: "SQLite database recording the session",
	},
}

// loadConfig reads the --config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Sensor.Bus = c.Int("bus")
	}
	if c.IsSet("interval") {
		cfg.Sampling.Interval = config.Duration(c.Duration("interval"))
	}
	if c.IsSet("telemetry") {
		cfg.Telemetry.Address = c.String("telemetry")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
