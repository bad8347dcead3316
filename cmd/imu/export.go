package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/sampler"
	"github.com/mklimuk/imu/storage"
)

var exportCmd = cli.Command{
	Name:  "export",
	Usage: "inspect and export recorded sessions",
	Subcommands: cli.Commands{
		&exportSessionsCmd,
		&exportCSVCmd,
	},
}

var dbFlag = &cli.StringFlag{
	Name:     "db",
	Usage:    "SQLite database written by stream --db",
	Required: true,
}

var exportSessionsCmd = cli.Command{
	Name:    "sessions",
	Aliases: []string{"ls"},
	Usage:   "list recorded sessions",
	Flags:   []cli.Flag{dbFlag},
	Action: func(c *cli.Context) error {
		rec, err := storage.Open(c.String("db"))
		if err != nil {
			return console.Exit(1, "could not open database: %s", err)
		}
		defer func() { _ = rec.Close() }()
		sessions, err := rec.Sessions(c.Context)
		if err != nil {
			return console.Exit(1, "could not list sessions: %s", err)
		}
		w := tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tSTARTED\tDEVICE\n")
		for _, s := range sessions {
			_, _ = fmt.Fprintf(w, "%d\t%s (%s)\t%s\n", s.ID, s.StartTime.Format("2006-01-02 15:04:05"), humanize.Time(s.StartTime), s.Device)
		}
		_ = w.Flush()
		return nil
	},
}

var exportCSVCmd = cli.Command{
	Name:      "csv",
	Usage:     "write the samples of a session as CSV",
	ArgsUsage: "<session id>",
	Flags: []cli.Flag{
		dbFlag,
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output file, stdout when empty",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite the output file without asking",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		id, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
		if err != nil {
			return console.Exit(1, "invalid session id: %s", err)
		}
		rec, err := storage.Open(c.String("db"))
		if err != nil {
			return console.Exit(1, "could not open database: %s", err)
		}
		defer func() { _ = rec.Close() }()

		var out io.Writer = os.Stdout
		if path := c.String("out"); path != "" {
			if _, err = os.Stat(path); err == nil && !c.Bool("force") {
				answer, err := console.YesOrNo(fmt.Sprintf("%s exists, overwrite?", path))
				if err != nil || answer != console.Yes {
					console.PInfof(console.PictoStop, "export cancelled")
					return nil
				}
			}
			f, err := os.Create(path)
			if err != nil {
				return console.Exit(1, "could not create output file: %s", err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		n, err := exportCSV(c.Context, rec, id, out)
		if err != nil {
			return console.Exit(1, "export failed: %s", err)
		}
		if c.String("out") != "" {
			console.PInfof(console.PictoNotebook, "%s samples written to %s", console.White(humanize.Comma(int64(n))), c.String("out"))
		}
		return nil
	},
}

var errEmptySession = errors.New("session has no samples")

func exportCSV(ctx context.Context, rec *storage.Recorder, sessionID int64, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"timestamp_ms", "ax", "ay", "az", "mx", "my", "mz"}); err != nil {
		return 0, err
	}
	n := 0
	err := rec.Samples(ctx, sessionID, func(s sampler.Sample) error {
		n++
		a, m := s.Acceleration, s.MagneticField
		return w.Write([]string{
			strconv.FormatInt(s.Time.UnixMilli(), 10),
			strconv.Itoa(a.X), strconv.Itoa(a.Y), strconv.Itoa(a.Z),
			fmt3(m.X), fmt3(m.Y), fmt3(m.Z),
		})
	})
	if err != nil {
		return n, err
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %d", errEmptySession, sessionID)
	}
	return n, nil
}
