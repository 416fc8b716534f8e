package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/coverage"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/docs"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/reference"
)

func main() {
	Cmd := &cli.Command{
		Name:    "cnvref",
		Version: "0.1.0",
		Authors: []any{
			&mail.Address{
				Name:    "CMGG ICT Team",
				Address: "ict.cmgg@uzgent.be",
			},
		},
		Copyright: "Copyright (c) " + time.Now().Format("2006") + " Center for Medical Genetics Ghent, Ghent University Hospital",
		Usage:     "build and screen pooled copy-number references",
		UsageText: "cnvref [global options] command [command options] [arguments...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Aliases:   []string{"c"},
				Usage:     "YAML file overriding the built-in thresholds",
				TakesFile: true,
				Action: func(ctx context.Context, cmd *cli.Command, v string) error {
					if _, err := params.Load(v); err != nil {
						return cli.Exit("Error: "+err.Error(), 1)
					}
					return nil
				},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug messages",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Only log warnings and errors",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") && cmd.Bool("quiet") {
				return nil, cli.Exit("Error: --verbose and --quiet cannot be combined", 1)
			}
			level := slog.LevelInfo
			switch {
			case cmd.Bool("verbose"):
				level = slog.LevelDebug
			case cmd.Bool("quiet"):
				level = slog.LevelWarn
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			&reference.ReferenceCmd,
			&reference.CheckCmd,
			&reference.RegionsCmd,
			&coverage.CoverageCmd,
			&docs.BuildCmd,
		},
		EnableShellCompletion: true,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cli.ShowAppHelp(cmd)
			return nil
		},
	}

	if err := Cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
