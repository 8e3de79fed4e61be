package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/compile"
	"github.com/kingrea/testgen/internal/config"
	"github.com/kingrea/testgen/internal/generate"
	"github.com/kingrea/testgen/internal/history"
	"github.com/kingrea/testgen/internal/logging"
	"github.com/kingrea/testgen/internal/render"
	"github.com/kingrea/testgen/internal/review"
)

type options struct {
	outfile   string
	maxTries  int
	seed      uint64
	compiler  string
	noCompile bool
	review    bool
	verbose   bool

	stdout io.Writer
	stderr io.Writer
}

type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	journal *history.Journal
}

func (s *session) Close() error {
	return s.logger.Close()
}

func (o *options) open() (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	if err := config.InitDir(cwd); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.Dir, err)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewWithConsole(cwd, o.verbose, o.stderr)
	if err != nil {
		return nil, err
	}
	journal, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, journal: journal}, nil
}

// record appends the outcome of a run to the journal. Journal failures are
// logged and otherwise ignored.
func (s *session) record(req generate.Request, report generate.Report, runErr error) {
	entry := history.Entry{
		Status:    history.StatusOK,
		RunID:     report.RunID,
		OutFile:   req.OutFile,
		Questions: len(report.Selection),
		Attempts:  report.Attempts,
	}
	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.Message = runErr.Error()
	}
	if err := s.journal.Record(entry); err != nil {
		s.logger.Printf("history: %v", err)
	}
}

// request merges flags with project defaults. Flags win when given.
func (o *options) request(cmd *cobra.Command, cfg *config.Config, bankPath, configPath string) generate.Request {
	req := generate.Request{
		BankPath:    bankPath,
		ConfigPath:  configPath,
		OutFile:     o.outFile(cmd, cfg),
		MaxTries:    o.maxTries,
		SkipCompile: o.noCompile,
	}
	if !cmd.Flags().Changed("max_tries") {
		req.MaxTries = cfg.DefaultMaxTries()
	}
	if cmd.Flags().Changed("seed") {
		seed := o.seed
		req.Seed = &seed
	}
	return req
}

// outFile returns --outfile when given, else the project default.
func (o *options) outFile(cmd *cobra.Command, cfg *config.Config) string {
	if cmd.Flags().Changed("outfile") {
		return o.outfile
	}
	return cfg.DefaultOutFile()
}

func (o *options) resolveCompiler(cmd *cobra.Command, cfg *config.Config) (compile.Compiler, error) {
	settings := cfg.Compiler()
	name, args := settings.Name, settings.Args
	if cmd.Flags().Changed("compiler") {
		name, args = o.compiler, nil
	}
	var stdout io.Writer = io.Discard
	if o.verbose {
		stdout = o.stderr
	}
	return compile.DefaultRegistry().Resolve(name, compile.Options{
		Args:   args,
		Stdout: stdout,
		Stderr: o.stderr,
	})
}

func (o *options) generator(cmd *cobra.Command, s *session) (*generate.Generator, error) {
	c, err := o.resolveCompiler(cmd, s.cfg)
	if err != nil {
		return nil, err
	}
	g := generate.New(s.logger, c)
	g.Version = version
	return g, nil
}

func (o *options) generate(cmd *cobra.Command, bankPath, configPath string) error {
	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := o.generator(cmd, s)
	if err != nil {
		return err
	}
	if o.review {
		g.Review = func(items []bank.Item, round int) (generate.Decision, error) {
			return review.Run(items, round)
		}
	}
	req := o.request(cmd, s.cfg, bankPath, configPath)
	report, err := g.Run(cmd.Context(), req)
	s.record(req, report, err)
	if err != nil {
		return err
	}
	o.printReport(report)
	return nil
}

func (o *options) printReport(report generate.Report) {
	for _, v := range render.Variants {
		fmt.Fprintf(o.stdout, "%s %s\n", okStyle.Render("wrote"), report.Sources[v])
	}
	fmt.Fprintf(o.stdout, "%s %s\n", okStyle.Render("wrote"), report.Manifest)
	status := "not compiled"
	if report.Compiled {
		status = "compiled"
	}
	plural := "s"
	if report.Attempts == 1 {
		plural = ""
	}
	summary := fmt.Sprintf("%d questions · %d attempt%s · %s · run %s",
		len(report.Selection), report.Attempts, plural, status, report.RunID)
	fmt.Fprintln(o.stdout, dimStyle.Render(summary))
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	return strings.Join(tags, ", ")
}
