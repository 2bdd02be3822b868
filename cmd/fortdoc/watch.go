package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fortdoc/internal/core/app"
	"fortdoc/internal/ui/report"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build once, then rebuild whenever a source file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	out := cmd.OutOrStdout()
	s.app.SetUpdateHandler(func(b *app.Build) {
		report.PrintSummary(out, report.NewSummary(b.Project, b.Sessions, b.Duration))
	})
	if _, err := s.app.Run(ctx); err != nil {
		// A broken initial tree is reported and fixed while watching.
		s.logger.Error("initial build failed", "error", err)
	}
	s.logger.Info("watching for changes", "dirs", s.cfg.Project.SrcDirs)
	return s.app.Watch(ctx)
}
