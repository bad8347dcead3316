package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/config"
	"github.com/mklimuk/imu/sampler"
	"github.com/mklimuk/imu/snsctx"
	"github.com/mklimuk/imu/storage"
	"github.com/mklimuk/imu/telemetry"
)

var streamCmd = cli.Command{
	Name:  "stream",
	Usage: "sample continuously until interrupted",
	Flags: append(append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "do not print samples",
		},
	}, sensorFlags...), samplingFlags...),
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		dev, err := openDevice(ctx, cfg, c.Int("speed"))
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", err)
		}
		defer func() { _ = dev.Close() }()

		var sinks []sampler.Sink
		if !c.Bool("quiet") {
			sinks = append(sinks, sampler.SinkFunc(func(ctx context.Context, s sampler.Sample) error {
				console.Printf("%s", telemetry.FormatText(s))
				return nil
			}))
		}
		if cfg.Telemetry.Address != "" {
			client := newTelemetryClient(cfg)
			defer func() { _ = client.Close() }()
			sinks = append(sinks, client)
			console.PInfof(console.PictoSatellite, "sending telemetry to %s", console.Cyan(cfg.Telemetry.Address))
		}
		if cfg.Storage.Path != "" {
			rec, err := storage.Open(cfg.Storage.Path)
			if err != nil {
				return console.Exit(1, "could not open database: %s", err)
			}
			defer func() { _ = rec.Close() }()
			id, err := rec.CreateSession(ctx, cfg.Adapter, cfg)
			if err != nil {
				return console.Exit(1, "could not create session: %s", err)
			}
			sinks = append(sinks, rec)
			console.PInfof(console.PictoDisk, "recording session %s to %s", console.White(id), console.Cyan(cfg.Storage.Path))
		}

		smp := sampler.New(dev.sensor,
			sampler.WithInterval(cfg.Sampling.Interval.Std()),
			sampler.WithMaxConsecutiveErrors(cfg.Sampling.MaxConsecutiveErrors),
			sampler.WithLogger(snsctx.Logger(ctx)),
			sampler.WithSinks(sinks...),
		)
		start := time.Now()
		err = smp.Run(ctx)
		console.PInfof(console.PictoFinish, "%s samples in %s (started %s)",
			console.White(humanize.Comma(int64(smp.Count()))),
			console.White(time.Since(start).Round(time.Millisecond)),
			humanize.Time(start))
		if err != nil {
			return console.Exit(2, "sampling aborted: %s", err)
		}
		return nil
	},
}

func newTelemetryClient(cfg config.Config) *telemetry.Client {
	format := telemetry.FormatText
	if cfg.Telemetry.Format == config.FormatJSON {
		format = telemetry.FormatJSON
	}
	return telemetry.NewClient(cfg.Telemetry.Address,
		telemetry.WithFormat(format),
		telemetry.WithWriteTimeout(cfg.Telemetry.WriteTimeout.Std()),
		telemetry.WithClientLogger(slog.Default()),
	)
}

func fmt3(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
