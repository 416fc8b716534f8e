package reference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
)

func fileExists(what string) func(context.Context, *cli.Command, string) error {
	return func(ctx context.Context, cmd *cli.Command, v string) error {
		if _, err := os.Stat(v); os.IsNotExist(err) {
			return cli.Exit("Error: "+what+" file does not exist", 1)
		}
		return nil
	}
}

func loadParams(cmd *cli.Command) (params.Params, error) {
	p, err := params.Resolve(cmd.Root().String("config"))
	if err != nil {
		return p, cli.Exit("Error: "+err.Error(), 1)
	}
	return p, nil
}

// ReferenceCmd pools sample coverages, or target and antitarget intervals,
// into a reference.
var ReferenceCmd = cli.Command{
	Name:      "reference",
	Usage:     "Build a copy-number reference from normal samples or from intervals alone",
	UsageText: "cnvref reference [options] <coverage1.cnn> <coverage2.cnn> ...\n   cnvref reference [options] --targets <targets.bed> [--antitargets <antitargets.bed>]",
	ArgsUsage: "<coverage.cnn> ...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "Output reference file (.cnn, .cnn.gz or .npz)",
			Value:     "reference.cnn",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "fasta",
			Aliases:   []string{"f"},
			Usage:     "Reference genome used for GC and repeat-masked content",
			TakesFile: true,
			Action:    fileExists("FASTA"),
		},
		&cli.StringFlag{
			Name:      "targets",
			Aliases:   []string{"t"},
			Usage:     "Target intervals for a flat reference (BED or interval_list)",
			TakesFile: true,
			Action:    fileExists("Targets"),
		},
		&cli.StringFlag{
			Name:      "antitargets",
			Aliases:   []string{"a"},
			Usage:     "Antitarget intervals for a flat reference (BED or interval_list)",
			TakesFile: true,
			Action:    fileExists("Antitargets"),
		},
		&cli.BoolFlag{
			Name:    "male-reference",
			Aliases: []string{"y"},
			Usage:   "Build a male reference: single-copy chrX and chrY are neutral",
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		flat := cmd.String("targets") != ""
		if flat && cmd.Args().Len() > 0 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Coverage files and --targets cannot be combined", 1)
		}
		if !flat && cmd.String("antitargets") != "" {
			return nil, cli.Exit("Error: --antitargets requires --targets", 1)
		}
		if !flat && cmd.Args().Len() == 0 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Incorrect number of arguments. Expected at least 1 coverage file while 0 were given", 1)
		}
		for _, fname := range cmd.Args().Slice() {
			if _, err := os.Stat(fname); os.IsNotExist(err) {
				return nil, cli.Exit("Error: Input file "+fname+" does not exist", 1)
			}
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		p, err := loadParams(cmd)
		if err != nil {
			return err
		}
		opts := Options{FastaPath: cmd.String("fasta"), Sex: cnary.Female, Params: p}
		if cmd.Bool("male-reference") {
			opts.Sex = cnary.Male
		}

		var ref *cnary.Array
		if cmd.String("targets") != "" {
			ref, err = FlatReference(cmd.String("targets"), cmd.String("antitargets"), opts)
		} else {
			ref, err = Build(cmd.Args().Slice(), opts)
		}
		if err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		if err := WarnBadProbes(os.Stderr, ref, p); err != nil {
			return err
		}
		if err := cnary.Write(cmd.String("output"), ref); err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		slog.Info("Wrote reference", "file", cmd.String("output"), "bins", ref.Len(), "sex", opts.Sex)
		return nil
	},
}

// CheckCmd reports the failing bins of a table and optionally writes the
// passing ones.
var CheckCmd = cli.Command{
	Name:      "check",
	Usage:     "Report bins with low coverage, high spread or repeats",
	UsageText: "cnvref check [options] <reference.cnn>",
	ArgsUsage: "<reference.cnn>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "Write the bins passing all filters to this file",
			TakesFile: true,
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Args().Len() != 1 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Incorrect number of arguments. Expected 1 argument while "+strconv.Itoa(cmd.Args().Len())+" were given", 1)
		}
		if _, err := os.Stat(cmd.Args().First()); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Input file does not exist", 1)
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		p, err := loadParams(cmd)
		if err != nil {
			return err
		}
		probes, err := cnary.Read(cmd.Args().First())
		if err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		if err := WarnBadProbes(os.Stderr, probes, p); err != nil {
			return err
		}
		out := cmd.String("output")
		if out == "" {
			return nil
		}
		mask := MaskBadProbes(probes, p)
		keep := make([]bool, len(mask))
		for i, bad := range mask {
			keep[i] = !bad
		}
		good := probes.Select(keep)
		if err := cnary.Write(out, good); err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		slog.Info("Wrote passing bins", "file", out, "bins", good.Len(), "dropped", probes.Len()-good.Len())
		return nil
	},
}

// RegionsCmd writes the target and antitarget intervals of a reference.
var RegionsCmd = cli.Command{
	Name:      "regions",
	Usage:     "Extract target and antitarget BED files from a reference",
	UsageText: "cnvref regions [options] <reference.cnn> <prefix>",
	ArgsUsage: "<reference.cnn> <prefix>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "coord-only",
			Usage: "Only write coordinates, without gene names",
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Args().Len() != 2 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Incorrect number of arguments. Expected 2 arguments while "+strconv.Itoa(cmd.Args().Len())+" were given", 1)
		}
		if _, err := os.Stat(cmd.Args().First()); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Reference file does not exist", 1)
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		ref, err := cnary.Read(cmd.Args().First())
		if err != nil {
			return cli.Exit("Error: "+err.Error(), 1)
		}
		prefix := cmd.Args().Get(1)
		if err := WriteRegions(ref, prefix, cmd.Bool("coord-only")); err != nil {
			return cli.Exit(fmt.Sprintf("Error: writing %s regions: %s", prefix, err), 1)
		}
		return nil
	},
}
