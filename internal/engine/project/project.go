// # internal/engine/project/project.go

// Package project aggregates parsed source files into project-wide entity
// lists. Parsing runs in parallel; everything after it is sequential.
package project

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fortdoc/internal/core/errors"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/shared/observability"
)

type Options struct {
	SrcDirs         []string
	Extensions      []string
	FixedExtensions []string
	ExcludeDirs     []string
	Exclude         []string
	// Workers bounds parallel parsing; 0 means GOMAXPROCS.
	Workers int
	// Force keeps going after structural and literal errors, keeping what
	// the broken file produced before the error.
	Force bool
}

func DefaultOptions() Options {
	return Options{
		SrcDirs:         []string{"./src"},
		Extensions:      []string{"f90", "f95", "f03", "f08", "f18"},
		FixedExtensions: []string{"f", "for", "ftn", "f77"},
	}
}

// FileParser parses one source file.
type FileParser interface {
	ParseFile(path string, fixed bool) (*parser.Result, error)
}

// LineStats sums NumLines over the project lists.
type LineStats struct {
	Modules       int `json:"modules"`
	Procedures    int `json:"procedures"`
	Files         int `json:"files"`
	Types         int `json:"types"`
	TypesAll      int `json:"types_all"`
	AbsInterfaces int `json:"absinterfaces"`
	Programs      int `json:"programs"`
	BlockData     int `json:"blockdata"`
}

type Project struct {
	Name             string
	Files            []*model.SourceFile
	Modules          []*model.Module
	Submodules       []*model.Submodule
	Procedures       []*model.Procedure
	Interfaces       []*model.Interface
	AbsInterfaces    []*model.Interface
	Types            []*model.Type
	SubmodProcedures []*model.Procedure
	Programs         []*model.Program
	BlockData        []*model.BlockData
	Namelists        []*model.Namelist
	// Common maps lower-case block names to every block of that name.
	Common          map[string][]*model.Common
	ExternalModules []*model.ExternalModule
	Warnings        []error
	Stats           LineStats

	logger *slog.Logger
}

func New(name string, logger *slog.Logger) *Project {
	if logger == nil {
		logger = slog.Default()
	}
	return &Project{Name: name, Common: make(map[string][]*model.Common), logger: logger}
}

type parsed struct {
	res *parser.Result
	err error
}

// Load parses sources in parallel and adds them in source order. A
// structural or literal error aborts the load unless opts.Force is set; a
// file that cannot be read is reported and skipped.
func Load(ctx context.Context, name string, fp FileParser, sources []Source, opts Options, logger *slog.Logger) (*Project, error) {
	ctx, span := observability.Tracer.Start(ctx, "project.Load",
		trace.WithAttributes(attribute.Int("files", len(sources))))
	defer span.End()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]parsed, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, fspan := observability.Tracer.Start(gctx, "project.ParseFile",
				trace.WithAttributes(attribute.String("path", src.Path)))
			start := time.Now()
			res, err := fp.ParseFile(src.Path, src.Fixed)
			observability.ParsingDuration.WithLabelValues(form(src.Fixed)).Observe(time.Since(start).Seconds())
			if err != nil {
				fspan.RecordError(err)
			}
			fspan.End()
			results[i] = parsed{res: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p := New(name, logger)
	for i, r := range results {
		if err := p.addResult(sources[i], r, opts.Force); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	return p, nil
}

func form(fixed bool) string {
	if fixed {
		return "fixed"
	}
	return "free"
}

func (p *Project) addResult(src Source, r parsed, force bool) error {
	if r.res != nil {
		for _, w := range r.res.Warnings {
			p.Warn(w)
		}
	}
	switch {
	case r.err == nil:
		p.AddFile(r.res.File)
		observability.FilesParsedTotal.WithLabelValues("ok").Inc()
	case errors.IsCode(r.err, errors.CodeStructural) || errors.IsCode(r.err, errors.CodeLiteral):
		if !force {
			observability.FilesParsedTotal.WithLabelValues("failed").Inc()
			return r.err
		}
		p.logger.Warn("skipping remainder of file", "path", src.Path, "error", r.err)
		p.Warnings = append(p.Warnings, r.err)
		if r.res != nil && r.res.File != nil {
			p.AddFile(r.res.File)
		}
		observability.FilesParsedTotal.WithLabelValues("partial").Inc()
	default:
		p.logger.Warn("could not parse file", "path", src.Path, "error", r.err)
		p.Warnings = append(p.Warnings, r.err)
		observability.FilesParsedTotal.WithLabelValues("failed").Inc()
	}
	return nil
}

// Warn records a non-fatal problem.
func (p *Project) Warn(err error) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = errors.CodeInternal
	}
	observability.WarningsTotal.WithLabelValues(string(code)).Inc()
	p.logger.Debug("warning", "code", code, "error", err)
	p.Warnings = append(p.Warnings, err)
}

// AddFile registers a parsed file and its top-level units.
func (p *Project) AddFile(f *model.SourceFile) {
	p.Files = append(p.Files, f)
	p.Modules = append(p.Modules, f.Modules...)
	p.Submodules = append(p.Submodules, f.Submodules...)
	p.Procedures = append(p.Procedures, f.Functions...)
	p.Procedures = append(p.Procedures, f.Subroutines...)
	p.Programs = append(p.Programs, f.Programs...)
	p.BlockData = append(p.BlockData, f.BlockData...)
	model.Walk(f, func(e model.Entity) bool {
		if nl, ok := e.(*model.Namelist); ok {
			p.Namelists = append(p.Namelists, nl)
		}
		return true
	})
}

// AddExternal registers a module documented outside the project.
func (p *Project) AddExternal(m *model.ExternalModule) {
	for _, have := range p.ExternalModules {
		if have.Key() == m.Key() {
			return
		}
	}
	p.ExternalModules = append(p.ExternalModules, m)
}

// FileProcedures returns the procedures defined at file scope.
func (p *Project) FileProcedures() []*model.Procedure {
	var out []*model.Procedure
	for _, f := range p.Files {
		out = append(out, f.Functions...)
		out = append(out, f.Subroutines...)
	}
	return out
}

// Gather rebuilds the flattened lists from the files: procedures,
// interfaces, types and submodule procedures declared in program units
// join the project lists, common blocks are grouped by name, and line
// statistics are summed. It runs after correlation.
func (p *Project) Gather() {
	p.Procedures = p.FileProcedures()
	p.Interfaces, p.AbsInterfaces, p.Types, p.SubmodProcedures = nil, nil, nil, nil
	p.Common = make(map[string][]*model.Common)

	for _, f := range p.Files {
		for _, unit := range codeUnits(f) {
			b := model.BodyOf(unit)
			for _, r := range append(append([]*model.Procedure{}, b.Functions...), b.Subroutines...) {
				if r.IsModule {
					p.SubmodProcedures = append(p.SubmodProcedures, r)
				} else {
					p.Procedures = append(p.Procedures, r)
				}
			}
			p.SubmodProcedures = append(p.SubmodProcedures, b.ModProcedures...)
			p.Interfaces = append(p.Interfaces, b.Interfaces...)
			p.AbsInterfaces = append(p.AbsInterfaces, b.AbsInterfaces...)
			p.Types = append(p.Types, b.Types...)
		}
		model.Walk(f, func(e model.Entity) bool {
			if c, ok := e.(*model.Common); ok {
				p.Common[c.Key()] = append(p.Common[c.Key()], c)
			}
			return true
		})
	}
	for _, group := range p.Common {
		for _, c := range group {
			c.OtherUses = group
		}
	}
	p.Stats = p.lineStats()
	p.recordEntities()
}

func codeUnits(f *model.SourceFile) []model.Entity {
	var out []model.Entity
	for _, m := range f.Modules {
		out = append(out, m)
	}
	for _, s := range f.Submodules {
		out = append(out, s)
	}
	for _, pr := range f.Programs {
		out = append(out, pr)
	}
	for _, bd := range f.BlockData {
		out = append(out, bd)
	}
	return out
}

func sumLines[T model.Entity](xs []T) int {
	n := 0
	for _, x := range xs {
		n += x.Base().NumLines
	}
	return n
}

func (p *Project) lineStats() LineStats {
	s := LineStats{
		Modules:       sumLines(p.Modules) + sumLines(p.Submodules),
		Procedures:    sumLines(p.Procedures),
		Files:         sumLines(p.Files),
		Types:         sumLines(p.Types),
		AbsInterfaces: sumLines(p.AbsInterfaces),
		Programs:      sumLines(p.Programs),
		BlockData:     sumLines(p.BlockData),
	}
	for _, t := range p.Types {
		s.TypesAll += t.NumLinesAll
	}
	return s
}

func (p *Project) recordEntities() {
	counts := map[string]int{
		model.KindSourceFile.String():     len(p.Files),
		model.KindModule.String():         len(p.Modules),
		model.KindSubmodule.String():      len(p.Submodules),
		model.KindProcedure.String():      len(p.Procedures) + len(p.SubmodProcedures),
		model.KindInterface.String():      len(p.Interfaces) + len(p.AbsInterfaces),
		model.KindType.String():           len(p.Types),
		model.KindProgram.String():        len(p.Programs),
		model.KindBlockData.String():      len(p.BlockData),
		model.KindNamelist.String():       len(p.Namelists),
		model.KindCommon.String():         len(p.Common),
		model.KindExternalModule.String(): len(p.ExternalModules),
	}
	for kind, n := range counts {
		observability.Entities.WithLabelValues(kind).Set(float64(n))
	}
}

// Find returns the first project-level entity named name. Kinds restrict
// the lists searched; with none every list is searched.
func (p *Project) Find(name string, kinds ...model.Kind) model.Entity {
	if len(kinds) == 0 {
		kinds = searchOrder
	}
	for _, k := range kinds {
		for _, e := range p.list(k) {
			if strings.EqualFold(e.Base().Name, name) {
				return e
			}
		}
	}
	return nil
}

// FindChild looks up child inside the project-level entity name.
func (p *Project) FindChild(name, child string, kinds ...model.Kind) model.Entity {
	parent := p.Find(name)
	if parent == nil {
		return nil
	}
	return model.Find(parent, child, kinds...)
}

var searchOrder = []model.Kind{
	model.KindModule,
	model.KindExternalModule,
	model.KindType,
	model.KindProcedure,
	model.KindSubmodule,
	model.KindInterface,
	model.KindProgram,
	model.KindSourceFile,
	model.KindNamelist,
	model.KindBlockData,
	model.KindCommon,
}

func (p *Project) list(k model.Kind) []model.Entity {
	switch k {
	case model.KindModule:
		return entities(p.Modules)
	case model.KindExternalModule:
		return entities(p.ExternalModules)
	case model.KindType:
		return entities(p.Types)
	case model.KindProcedure:
		return append(entities(p.Procedures), entities(p.SubmodProcedures)...)
	case model.KindSubmodule:
		return entities(p.Submodules)
	case model.KindInterface:
		return append(entities(p.AbsInterfaces), entities(p.Interfaces)...)
	case model.KindProgram:
		return entities(p.Programs)
	case model.KindSourceFile:
		return entities(p.Files)
	case model.KindNamelist:
		return entities(p.Namelists)
	case model.KindBlockData:
		return entities(p.BlockData)
	case model.KindCommon:
		var out []model.Entity
		for _, group := range p.Common {
			if len(group) > 0 {
				out = append(out, group[0])
			}
		}
		return out
	}
	return nil
}

func entities[T model.Entity](xs []T) []model.Entity {
	out := make([]model.Entity, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
