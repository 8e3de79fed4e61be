package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kingrea/testgen/internal/artifact"
	"github.com/kingrea/testgen/internal/config"
	"github.com/kingrea/testgen/internal/generate"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check BANK CONFIG",
		Short: "Validate the inputs and report how many questions each tag can draw from",
		Long: `check parses both files with the same rules as a real run and prints, for
each tag in configuration order, the requested count next to the number of
eligible questions. Counts ignore questions consumed by earlier tags, so a
passing check does not guarantee that sampling succeeds when tags overlap.
Existing outputs for --outfile (or the project default) are listed with the
run that produced them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := generate.Inspect(args[0], args[1])
			if err != nil {
				return err
			}
			if err := opts.printInspection(in); err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine working directory: %w", err)
			}
			cfg, err := config.NewConfig(cwd)
			if err != nil {
				return err
			}
			return opts.printOutputs(opts.outFile(cmd, cfg))
		},
	}
}

func (o *options) printInspection(in *generate.Inspection) error {
	fmt.Fprintf(o.stdout, "%d questions in bank, %d requested, excluding %s\n", in.Items, in.Total, joinTags(in.Exclude))
	tw := tabwriter.NewWriter(o.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNEED\tELIGIBLE\t")
	for _, r := range in.Reports {
		mark := okStyle.Render("ok")
		if r.Short() {
			mark = errorStyle.Render("short")
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.Quota.Tag, r.Quota.Count, r.Eligible, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if short := in.Short(); len(short) > 0 {
		return fmt.Errorf("%d tag(s) can never be filled; every attempt would fail", len(short))
	}
	return nil
}

func (o *options) printOutputs(outfile string) error {
	store := artifact.NewStore(outfile)
	for _, ref := range []artifact.Ref{artifact.PlainSource, artifact.KeySource, artifact.Manifest} {
		result, err := store.Check(ref)
		switch result.State {
		case artifact.StateMissing:
			continue
		case artifact.StateReady:
			fmt.Fprintf(o.stdout, "%s %s %s\n", okStyle.Render("ready"), result.Path,
				dimStyle.Render("run "+result.Metadata.RunID+" at "+result.Metadata.CreatedAt.Format("2006-01-02 15:04")))
		case artifact.StateInvalid:
			fmt.Fprintf(o.stdout, "%s %s %s\n", errorStyle.Render("stale"), result.Path, dimStyle.Render(result.Err.Error()))
		default:
			return err
		}
	}
	return nil
}
