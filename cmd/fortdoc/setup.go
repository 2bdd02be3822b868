package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fortdoc/internal/core/app"
	"fortdoc/internal/core/config"
	"fortdoc/internal/shared/observability"
)

// applyColor sets the global colour switch from --color.
func applyColor(cmd *cobra.Command) error {
	mode, _ := cmd.Flags().GetString("color")
	switch strings.ToLower(mode) {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (want auto|on|off)", mode)
	}
	return nil
}

func newLogger(cmd *cobra.Command, out io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openLogFile returns the log destination used while the terminal is taken
// by the browser.
func openLogFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", path, err)
	}
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("refusing to write logs to symlink path %s", path)
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
}

// loadConfig reads --config. The default file may be missing, in which case
// the built-in defaults apply relative to the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	base := filepath.Dir(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg, base = config.Default(), "."
	}
	config.ApplyEnvOverrides(cfg)
	cfg.ResolvePaths(base)
	return cfg, nil
}

// startObservability enables tracing and the metrics endpoint when the
// config asks for them. The returned function stops both.
func startObservability(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	if addr := cfg.Observability.MetricsAddress; addr != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, addr); err != nil {
				logger.Warn("metrics endpoint stopped", "addr", addr, "error", err)
			}
		}()
	}
	return func() {
		cancel()
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}

// session bundles what every command needs: config, logger and app.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *app.App
	stop   func()
}

func newSession(cmd *cobra.Command, logOut io.Writer) (*session, error) {
	if err := applyColor(cmd); err != nil {
		return nil, err
	}
	logger := newLogger(cmd, logOut)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		app:    a,
		stop:   startObservability(cmd.Context(), cfg, logger),
	}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.app.Close(ctx); err != nil {
		s.logger.Warn("closing app failed", "error", err)
	}
	s.stop()
}
