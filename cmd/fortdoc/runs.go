package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/data/symbols"
)

var runsUnresolved string

func init() {
	runsCmd.Flags().StringVar(&runsUnresolved, "unresolved", "", "list the unresolved calls of the given run")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List builds stored in the symbol database",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if err := applyColor(cmd); err != nil {
		return err
	}
	newLogger(cmd, os.Stderr)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DB.Path); err != nil {
		return fderrors.Wrap(err, fderrors.CodeNotFound, "symbol database "+cfg.DB.Path)
	}
	store, err := symbols.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if runsUnresolved != "" {
		calls, err := store.Calls(ctx, runsUnresolved, true)
		if err != nil {
			return err
		}
		for _, c := range calls {
			_, _ = fmt.Fprintf(out, "%-40s %5d  %s\n", c.Caller, c.Line, c.Chain)
		}
		_, _ = fmt.Fprintf(out, "%d unresolved calls\n", len(calls))
		return nil
	}

	runs, err := store.Runs(ctx, cfg.Project.Name)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintf(out, "No stored runs for %s.\n", cfg.Project.Name)
		return nil
	}
	for _, r := range runs {
		_, _ = fmt.Fprintf(out, "%s  %s  files=%d modules=%d procedures=%d types=%d warnings=%d\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Files, r.Modules, r.Procedures, r.Types, r.Warnings)
	}
	return nil
}
