package coverage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
)

var CoverageCmd = cli.Command{
	Name:      "coverage",
	Usage:     "Calculate the read depth of each bin from aligned reads",
	UsageText: "cnvref coverage [options] <input.bam/cram> <regions.bed> <output.cnn>",
	ArgsUsage: "<input.bam/cram> <regions.bed> <output.cnn>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "reference",
			Aliases:   []string{"r"},
			Usage:     "Reference genome file for cram decoding.",
			TakesFile: true,
			Action: func(ctx context.Context, cmd *cli.Command, v string) error {
				if _, err := os.Stat(v); os.IsNotExist(err) {
					return cli.Exit("Error: Reference file does not exist", 1)
				}
				return nil
			},
		},
		&cli.IntFlag{
			Name:        "min-mapq",
			Aliases:     []string{"q"},
			Usage:       "Minimum mapping quality of counted reads",
			DefaultText: "0",
			Action: func(ctx context.Context, cmd *cli.Command, v int) error {
				if v < 0 || v > 255 {
					return cli.Exit("Error: Mapping quality must be between 0 and 255", 1)
				}
				return nil
			},
		},
		&cli.BoolFlag{
			Name:    "keep-duplicates",
			Aliases: []string{"no-remove-duplicates"},
			Usage:   "Count reads flagged as duplicates",
			Value:   false,
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Args().Len() != 3 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Incorrect number of arguments. Expected 3 arguments while "+strconv.Itoa(cmd.Args().Len())+" were given", 1)
		}
		infile := cmd.Args().Get(0)
		if _, err := os.Stat(infile); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Input file does not exist", 1)
		}
		if _, err := os.Stat(cmd.Args().Get(1)); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Regions file does not exist", 1)
		}
		if strings.EqualFold(filepath.Ext(infile), ".cram") && cmd.String("reference") == "" {
			return nil, cli.Exit("Error: Reference genome must be specified for CRAM files using the --reference flag", 1)
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		p, err := params.Resolve(cmd.Root().String("config"))
		if err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		opts := Options{
			MinMapQ:        cmd.Int("min-mapq"),
			KeepDuplicates: cmd.Bool("keep-duplicates"),
			FastaPath:      cmd.String("reference"),
			Params:         p,
		}
		a, err := Calculate(cmd.Args().Get(0), cmd.Args().Get(1), opts)
		if err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		out := cmd.Args().Get(2)
		if err := cnary.Write(out, a); err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		slog.Info("Wrote coverage", "file", out, "bins", a.Len())
		return nil
	},
}
