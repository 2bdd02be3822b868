package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ioCmd = &cobra.Command{
	Use:   "io [file]",
	Short: "Show the I/O sessions of the project, optionally for one file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIO,
}

func runIO(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	if _, err := s.app.Build(cmd.Context()); err != nil {
		return err
	}
	file := ""
	if len(args) == 1 {
		file = args[0]
	}
	sessions := s.app.IOSessions(file)
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "No I/O sessions found.")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	for _, sess := range sessions {
		target := sess.File
		if target == "" {
			target = "(unnamed)"
		}
		_, _ = fmt.Fprintf(out, "%s unit %s -> %s\n", bold(sess.Path), sess.Unit, target)
		for _, op := range sess.Operations {
			_, _ = fmt.Fprintf(out, "  %5d  %-8s %s\n", op.Line, op.Kind, strings.TrimSpace(op.RawLine))
		}
	}
	return nil
}
