package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/testgen/internal/config"
	"github.com/kingrea/testgen/internal/history"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation runs in this directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--lines must be at least 1, got %d", limit)
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine working directory: %w", err)
			}
			cfg, err := config.NewConfig(cwd)
			if err != nil {
				return err
			}
			journal, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			lines, total, err := journal.Tail(limit)
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Fprintln(opts.stdout, dimStyle.Render("no runs recorded"))
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(opts.stdout, line)
			}
			fmt.Fprintln(opts.stdout, dimStyle.Render(fmt.Sprintf("showing %d of %d runs", len(lines), total)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 10, "number of runs to show")
	return cmd
}
