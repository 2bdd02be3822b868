package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fortdoc/internal/engine/model"
)

var findKinds []string

func init() {
	findCmd.Flags().StringSliceVar(&findKinds, "kind", nil, "restrict to entity kinds (module, proc, type, ...)")
}

var findCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Locate entities by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	kinds := make([]model.Kind, 0, len(findKinds))
	for _, k := range findKinds {
		kind, ok := model.ParseKind(k)
		if !ok {
			return fmt.Errorf("unknown entity kind %q", k)
		}
		kinds = append(kinds, kind)
	}

	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	if _, err := s.app.Build(cmd.Context()); err != nil {
		return err
	}
	found := s.app.Find(args[0], kinds...)
	out := cmd.OutOrStdout()
	if len(found) == 0 {
		return fmt.Errorf("no entity named %q", args[0])
	}
	for _, e := range found {
		loc := ""
		if f := model.SourceFileOf(e); f != nil {
			loc = fmt.Sprintf("%s:%d", f.Path, e.Base().Line)
		}
		_, _ = fmt.Fprintf(out, "%-16s %-40s %s\n", e.Kind(), model.Path(e), loc)
		for _, l := range e.Base().Doc {
			if l = strings.TrimSpace(l); l != "" {
				_, _ = fmt.Fprintf(out, "%16s %s\n", "", l)
				break
			}
		}
	}
	return nil
}
