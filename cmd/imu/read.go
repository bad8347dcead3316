package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "read a single acceleration and magnetic field sample",
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

		s, err := sampler.New(dev.sensor).Sample(ctx)
		if err != nil {
			return console.Exit(1, "error reading sensor: %s", err)
		}
		printSample(s)
		return nil
	},
}

func printSample(s sampler.Sample) {
	a, m := s.Acceleration, s.MagneticField
	console.PInfof(console.PictoArrow, "acceleration  x=%s y=%s z=%s", console.White(a.X), console.White(a.Y), console.White(a.Z))
	x, y, z := mpu9250.UnitVector(a.Vector())
	console.PInfof(console.PictoPin, "gravity dir   x=%s y=%s z=%s", console.White(fmt3(x)), console.White(fmt3(y)), console.White(fmt3(z)))
	console.PInfof(console.PictoMagnet, "field (uT)    x=%s y=%s z=%s", console.White(fmt3(m.X)), console.White(fmt3(m.Y)), console.White(fmt3(m.Z)))
	x, y, z = mpu9250.UnitVector(m.Vector())
	console.PInfof(console.PictoCompass, "field dir     x=%s y=%s z=%s", console.White(fmt3(x)), console.White(fmt3(y)), console.White(fmt3(z)))
}
