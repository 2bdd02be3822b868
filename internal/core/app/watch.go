package app

import (
	"context"

	"golang.org/x/time/rate"

	"fortdoc/internal/core/watcher"
)

// Watch rebuilds whenever a source under the configured directories
// changes, until ctx is done. Rebuilds are debounced by the watcher and
// rate limited here; changes arriving during a rebuild collapse into one
// follow-up rebuild.
func (a *App) Watch(ctx context.Context) error {
	changes := make(chan struct{}, 1)
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Project.ExcludeDirs,
		a.Config.Project.Exclude,
		func(paths []string) {
			a.logger.Info("sources changed", "count", len(paths))
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()

	w.SetLogger(a.logger)
	exts := append([]string(nil), a.Config.Project.Extensions...)
	w.SetExtensions(append(exts, a.Config.Project.FixedExtensions...))
	if err := w.Watch(a.Config.Project.SrcDirs); err != nil {
		return err
	}
	a.startWriteWorker()

	limiter := rebuildLimiter(a.Config.Watch.MaxRebuildsPerSecond)
	a.logger.Info("watching sources", "dirs", a.Config.Project.SrcDirs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			if _, err := a.Run(ctx); err != nil {
				a.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

// rebuildLimiter allows perSecond rebuilds with no burst beyond one. Zero
// or a negative rate disables the limit.
func rebuildLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
