// # cmd/fortdoc/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is overridden at link time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "fortdoc",
	Short: "Fortran documentation and cross-reference builder",
	Long: `fortdoc parses a Fortran project, correlates modules, procedures and types,
and writes a JSON model, an I/O cross walk and module metadata for other projects.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(ioCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "fortdoc.toml", "path to config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
