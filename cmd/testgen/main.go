// cmd/testgen/main.go
//
// Entry point for the testgen CLI. Given an item bank and an exam
// configuration it samples a question set, writes the test and its answer
// key as LaTeX sources and compiles both.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", errorStyle.Render("error:"), err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "testgen BANK CONFIG",
		Short: "Assemble a multiple choice test from a tagged question bank",
		Long: `testgen draws questions from a YAML item bank according to the per-tag
counts in an exam configuration, then writes <outfile>.tex and
<outfile>_and_key.tex and compiles both with the configured LaTeX engine.

Tags are filled in the order they appear in the configuration. When a tag
runs out of eligible questions the whole draw starts over, up to --max_tries
times.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.generate(cmd, args[0], args[1])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.outfile, "outfile", "test", "base name of the generated files")
	flags.IntVar(&opts.maxTries, "max_tries", 10, "maximum number of sampling attempts")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for a reproducible selection")
	flags.StringVar(&opts.compiler, "compiler", "", "LaTeX compiler (pdflatex, xelatex, lualatex, latexmk, none or a command)")
	flags.BoolVar(&opts.noCompile, "no-compile", false, "write the sources without compiling them")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every sampling attempt to the console")
	root.Flags().BoolVar(&opts.review, "review", false, "review the selection interactively before writing")

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	return root
}
