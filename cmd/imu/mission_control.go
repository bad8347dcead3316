package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/telemetry"
)

var missionControlCmd = cli.Command{
	Name:    "mission-control",
	Aliases: []string{"mc"},
	Usage:   "receive telemetry lines from stream --telemetry and print them",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Value: fmt.Sprintf(":%d", telemetry.DefaultPort),
			Usage: "listen address",
		},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt, syscall.SIGTERM)
		defer stop()
		srv := telemetry.NewServer(slog.Default())
		lines := srv.Subscribe()
		go func() {
			for line := range lines {
				console.Printf("%s\n", line)
			}
		}()
		err := srv.ListenAndServe(ctx, c.String("listen"))
		srv.Unsubscribe(lines)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		return nil
	},
}
