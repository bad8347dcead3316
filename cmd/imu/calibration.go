package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/mpu9250"
)

type calibrationReport struct {
	Adapter     string                  `yaml:"adapter"`
	Bus         int                     `yaml:"bus"`
	Address     string                  `yaml:"address"`
	MagAddress  string                  `yaml:"mag_address"`
	MagMode     string                  `yaml:"mag_mode"`
	OutputBits  string                  `yaml:"output_bits"`
	Scale       float64                 `yaml:"scale_ut_per_lsb"`
	Sensitivity mpu9250.AxisSensitivity `yaml:"sensitivity"`
}

var calibrationCmd = cli.Command{
	Name:    "calibration",
	Aliases: []string{"cal"},
	Usage:   "print the factory sensitivity adjustment of the magnetometer",
	Flags:   sensorFlags,
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		dev, err := openDevice(ctx, cfg, c.Int("speed"))
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", err)
		}
		defer func() { _ = dev.Close() }()
		if dev.driver == nil {
			return console.Exit(1, "adapter %s has no fuse rom to read", cfg.Adapter)
		}
		dc := dev.driver.Config()
		report := calibrationReport{
			Adapter:     cfg.Adapter,
			Bus:         dc.Bus,
			Address:     cfg.Sensor.Address.String(),
			MagAddress:  cfg.Sensor.MagAddress.String(),
			MagMode:     dc.MagMode.String(),
			OutputBits:  dc.OutputBits.String(),
			Scale:       dc.OutputBits.ScaleResolution(),
			Sensitivity: dev.driver.Sensitivity(),
		}
		return printYAML(report)
	},
}
