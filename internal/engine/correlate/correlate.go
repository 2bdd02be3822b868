// # internal/engine/correlate/correlate.go

// Package correlate resolves the cross references left as names by the
// parser: USE targets, inherited symbols, derived-type extension, calls,
// bindings and prototypes. It runs once, after every file is parsed.
package correlate

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/shared/observability"
)

// Sort orders.
const (
	SortSource          = "src"
	SortAlpha           = "alpha"
	SortPermission      = "permission"
	SortPermissionAlpha = "permission-alpha"
	SortType            = "type"
	SortTypeAlpha       = "type-alpha"
)

type Options struct {
	// Display lists the permissions shown after pruning.
	Display       []string
	HideUndoc     bool
	ProcInternals bool
	Sort          string
	// ExtraModules maps module names to external documentation URLs.
	ExtraModules map[string]string
	// Externals are module stand-ins loaded from earlier runs.
	Externals []*model.ExternalModule
}

func DefaultOptions() Options {
	return Options{Display: []string{model.Public, model.Protected}, Sort: SortSource}
}

type correlator struct {
	p      *project.Project
	opts   Options
	logger *slog.Logger
}

// Run correlates p in place and finally gathers the project-wide lists.
func Run(ctx context.Context, p *project.Project, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Display == nil {
		opts.Display = DefaultOptions().Display
	}
	c := &correlator{p: p, opts: opts, logger: logger}

	ctx, span := observability.Tracer.Start(ctx, "correlate.Run")
	defer span.End()

	var ranked []model.Entity
	phases := []struct {
		name string
		fn   func()
	}{
		{"externals", c.mergeExternals},
		{"uses", c.resolveUses},
		{"order", func() { ranked = c.rank() }},
		{"entities", func() {
			for _, e := range ranked {
				c.unit(e)
			}
		}},
		{"prune", func() {
			for _, e := range ranked {
				c.prune(e)
			}
		}},
		{"gather", p.Gather},
	}
	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.phase(ctx, ph.name, ph.fn)
	}
	span.SetAttributes(attribute.Int("warnings", len(p.Warnings)))
	return nil
}

func (c *correlator) phase(ctx context.Context, name string, fn func()) {
	_, span := observability.Tracer.Start(ctx, "correlate."+name, trace.WithAttributes(attribute.String("phase", name)))
	defer span.End()
	start := time.Now()
	fn()
	observability.CorrelationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// mergeExternals adds the configured URL stand-ins and the loaded module
// tables to the project.
func (c *correlator) mergeExternals() {
	for _, name := range slices.Sorted(maps.Keys(c.opts.ExtraModules)) {
		c.p.AddExternal(&model.ExternalModule{
			Node:   model.Node{Name: name, Permission: model.Public},
			URL:    c.opts.ExtraModules[name],
			Public: model.NewSymbolTable(nil),
		})
	}
	for _, m := range c.opts.Externals {
		c.p.AddExternal(m)
	}
}

// rank orders modules and submodules so that every one comes after the
// modules it depends on, followed by file-level procedures, programs and
// block data.
func (c *correlator) rank() []model.Entity {
	var units []model.Entity
	index := make(map[model.Entity]int)
	for _, m := range c.p.Modules {
		index[m] = len(units)
		units = append(units, m)
	}
	for _, s := range c.p.Submodules {
		index[s] = len(units)
		units = append(units, s)
	}

	deps := make([][]int, len(units))
	for i, u := range units {
		for _, d := range c.dependencies(u) {
			if j, ok := index[d]; ok && j != i {
				deps[i] = append(deps[i], j)
			}
		}
	}
	topo := Toposort(len(units), func(i int) []int { return deps[i] })

	out := make([]model.Entity, 0, len(units)+len(c.p.Procedures)+len(c.p.Programs)+len(c.p.BlockData))
	for _, id := range topo.Order {
		out = append(out, units[id])
	}
	for _, id := range topo.Members {
		u := units[id]
		c.warn(u, u.Base().Name, "circular module dependency involving %s", u.Base().Name)
		out = append(out, u)
	}
	for _, id := range topo.Blocked {
		u := units[id]
		c.logger.Debug("module blocked by cycle", "module", u.Base().Name)
		out = append(out, u)
	}
	for _, pr := range c.p.FileProcedures() {
		out = append(out, pr)
	}
	for _, pr := range c.p.Programs {
		out = append(out, pr)
	}
	for _, bd := range c.p.BlockData {
		out = append(out, bd)
	}
	return out
}
