// # internal/engine/parser/parser.go

// Package parser builds the entity tree of a single Fortran source file.
//
// Statements are classified against an ordered pattern table; each opening
// statement recursively parses the construct it starts until the matching
// END. Cross references stay as names until the correlator resolves them.
package parser

import (
	"log/slog"
	"os"
	"path/filepath"

	"fortdoc/internal/core/errors"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/reader"
)

// Settings alter how statements are dispatched. They are built by the
// application from its configuration.
type Settings struct {
	Reader        reader.Options
	ExtraVartypes []string
	Lower         bool
	// Force makes structural errors skip the rest of the file instead of
	// aborting the run; the decision is taken by the caller.
	Force bool
	// Debug logs structural errors and keeps parsing the file.
	Debug bool
}

func DefaultSettings() Settings {
	return Settings{Reader: reader.DefaultOptions()}
}

// Result is a parsed file plus the non-fatal problems met along the way.
type Result struct {
	File     *model.SourceFile
	Warnings []error
}

type Parser struct {
	settings Settings
	patterns patternSet
	logger   *slog.Logger
}

func New(settings Settings, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Reader.Docmark == "" {
		settings.Reader = reader.DefaultOptions()
	}
	return &Parser{
		settings: settings,
		patterns: newPatternSet(settings.ExtraVartypes),
		logger:   logger,
	}
}

func (p *Parser) Settings() Settings { return p.settings }

// ParseFile reads and parses path. On a structural or literal error the
// returned Result still holds every top-level unit completed before it.
func (p *Parser) ParseFile(path string, fixed bool) (*Result, error) {
	opts := p.settings.Reader
	opts.Fixed = fixed
	r, err := reader.Open(path, opts)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read source"), errors.CtxPath, path)
	}
	return p.Parse(path, r, fixed)
}

// Parse consumes src as the content of the file at path.
func (p *Parser) Parse(path string, src reader.Source, fixed bool) (*Result, error) {
	file := &model.SourceFile{
		Node:  model.Node{Name: filepath.Base(path), Permission: model.Public, File: path},
		Path:  path,
		Fixed: fixed,
	}
	b := &builder{
		p:      p,
		src:    src,
		path:   path,
		docPfx: "!" + p.settings.Reader.Docmark,
		logger: p.logger.With("path", path),
	}
	err := b.run(b.newUnit(file))
	file.Meta, file.Doc = readMeta(file.Doc)
	return &Result{File: file, Warnings: b.warnings}, err
}
