package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fortdoc/internal/ui/report"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Parse and correlate the project and write the outputs",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	b, err := s.app.Build(cmd.Context())
	if err != nil {
		return err
	}
	written, err := s.app.WriteOutputs(b)
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	if err := s.app.Persist(cmd.Context(), b); err != nil {
		return fmt.Errorf("persist build: %w", err)
	}

	out := cmd.OutOrStdout()
	report.PrintSummary(out, report.NewSummary(b.Project, b.Sessions, b.Duration))
	for _, path := range written {
		_, _ = fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}
