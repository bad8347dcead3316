package main

import (
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/adapter"
	"github.com/mklimuk/imu/cmd/imu/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 bridge maintenance",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   -1,
			Usage:   "enumeration index when several bridges are attached",
		},
	},
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221SpeedCmd,
	},
}

func bridge(c *cli.Context) (*adapter.MCP2221, error) {
	var opts []adapter.MCP2221Opt
	if idx := c.Int("device"); idx >= 0 {
		opts = append(opts, adapter.WithDeviceIndex(idx))
	}
	a := adapter.NewMCP2221(opts...)
	return a, a.Init()
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the I2C engine status",
	Action: func(c *cli.Context) error {
		a, err := bridge(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", err)
		}
		status, err := a.Status(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", err)
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the pending transfer and free the bus",
	Action: func(c *cli.Context) error {
		a, err := bridge(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", err)
		}
		status, err := a.ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", err)
		}
		return printYAML(status)
	},
}

var mcp2221SpeedCmd = cli.Command{
	Name:      "speed",
	Usage:     "set the I2C clock",
	ArgsUsage: "<kHz>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		khz, err := strconv.Atoi(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "invalid speed: %s", err)
		}
		a, err := bridge(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", err)
		}
		if err = a.SetSpeed(commandContext(c), khz*1000); err != nil {
			return console.Exit(1, "adapter communication error: %s", err)
		}
		console.PInfof(console.PictoPin, "i2c clock set to %s kHz", console.White(khz))
		return nil
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", err)
	}
	return nil
}
