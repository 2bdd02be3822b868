package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fortdoc/internal/ui/cli"
)

var (
	browseWatch   bool
	browseLogFile string
)

func init() {
	browseCmd.Flags().BoolVar(&browseWatch, "watch", false, "rebuild while the browser is open")
	browseCmd.Flags().StringVar(&browseLogFile, "log-file", "", "log destination (default <output dir>/fortdoc.log)")
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the modules, procedures and types of the project",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	if !isTerminal(os.Stdout) {
		return errors.New("browse needs an interactive terminal")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logPath := browseLogFile
	if logPath == "" {
		logPath = filepath.Join(cfg.Output.Dir, "fortdoc.log")
	}
	logOut, err := openLogFile(logPath)
	if err != nil {
		return err
	}
	defer logOut.Close()

	s, err := newSession(cmd, logOut)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	if _, err := s.app.Run(cmd.Context()); err != nil {
		return err
	}
	return cli.RunBrowser(cmd.Context(), s.app, browseWatch, s.logger)
}
