package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/testgen/internal/watch"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch BANK CONFIG",
		Short: "Regenerate the test whenever the bank or configuration changes",
		Long: `watch runs a generation immediately and again after every saved change to
either input file. Failures are reported and the watch continues. Stop it
with Ctrl+C.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.watch(cmd, args[0], args[1])
		},
	}
}

func (o *options) watch(cmd *cobra.Command, bankPath, configPath string) error {
	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := o.generator(cmd, s)
	if err != nil {
		return err
	}
	log := s.logger.Zap()
	regenerate := func(ctx context.Context) {
		req := o.request(cmd, s.cfg, bankPath, configPath)
		report, err := g.Run(ctx, req)
		s.record(req, report, err)
		if err != nil {
			log.Info("regeneration failed", zap.Error(err))
			fmt.Fprintf(o.stderr, "%s %v\n", errorStyle.Render("error:"), err)
			return
		}
		o.printReport(report)
	}

	w, err := watch.New([]string{bankPath, configPath}, func(ctx context.Context, changed []string) {
		log.Info("inputs changed", zap.Strings("paths", changed))
		regenerate(ctx)
	}, watch.WithLogger(log), watch.WithReadyFunc(func() {
		fmt.Fprintln(o.stdout, dimStyle.Render(fmt.Sprintf("watching %s and %s", bankPath, configPath)))
	}))
	if err != nil {
		return err
	}
	regenerate(cmd.Context())
	return w.Run(cmd.Context())
}
