package cli

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"fortdoc/internal/core/app"
)

// RunBrowser shows the latest build of a and, when watch is set, keeps
// rebuilding on source changes until the browser is closed.
func RunBrowser(ctx context.Context, a *app.App, watch bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBrowser(), tea.WithAltScreen(), tea.WithContext(ctx))
	a.SetUpdateHandler(func(b *app.Build) {
		p.Send(updateMsg{build: b})
	})
	defer a.SetUpdateHandler(nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if last := a.Last(); last != nil {
			p.Send(updateMsg{build: last})
		}
		if !watch {
			return nil
		}
		if err := a.Watch(gctx); err != nil {
			logger.Error("watch stopped", "error", err)
			return err
		}
		return nil
	})
	return g.Wait()
}
