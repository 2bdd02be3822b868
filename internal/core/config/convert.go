package config

import (
	"path/filepath"

	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/engine/reader"
)

// ParserSettings returns the statement parser settings of cfg.
func (cfg *Config) ParserSettings() parser.Settings {
	return parser.Settings{
		Reader: reader.Options{
			FixedLengthLimit: cfg.Parse.FixedLimit(),
			Docmark:          cfg.Parse.Docmark,
			Predocmark:       cfg.Parse.Predocmark,
			DocmarkAlt:       cfg.Parse.DocmarkAlt,
			PredocmarkAlt:    cfg.Parse.PredocmarkAlt,
		},
		ExtraVartypes: append([]string(nil), cfg.Parse.ExtraVartypes...),
		Lower:         cfg.Parse.Lower,
		Force:         cfg.Parse.Force,
		Debug:         cfg.Parse.Debug,
	}
}

func (cfg *Config) ProjectOptions() project.Options {
	return project.Options{
		SrcDirs:         append([]string(nil), cfg.Project.SrcDirs...),
		Extensions:      append([]string(nil), cfg.Project.Extensions...),
		FixedExtensions: append([]string(nil), cfg.Project.FixedExtensions...),
		ExcludeDirs:     append([]string(nil), cfg.Project.ExcludeDirs...),
		Exclude:         append([]string(nil), cfg.Project.Exclude...),
		Workers:         cfg.Parse.Workers,
		Force:           cfg.Parse.Force,
	}
}

// CorrelateOptions returns the correlator options of cfg. Module metadata
// files are loaded by the caller.
func (cfg *Config) CorrelateOptions() correlate.Options {
	display := make([]string, 0, len(cfg.Display.Display))
	for _, d := range cfg.Display.Display {
		if d != "none" {
			display = append(display, d)
		}
	}
	extra := make(map[string]string, len(cfg.Externals.Modules))
	for name, url := range cfg.Externals.Modules {
		extra[name] = url
	}
	return correlate.Options{
		Display:       display,
		HideUndoc:     cfg.Display.HideUndoc,
		ProcInternals: cfg.Display.ProcInternals,
		Sort:          cfg.Display.Sort,
		ExtraModules:  extra,
	}
}

// ResolvePaths makes the relative paths of cfg relative to base, normally
// the directory holding the config file.
func (cfg *Config) ResolvePaths(base string) {
	if base == "" {
		return
	}
	for i, d := range cfg.Project.SrcDirs {
		cfg.Project.SrcDirs[i] = join(base, d)
	}
	for i, m := range cfg.Externals.Metadata {
		cfg.Externals.Metadata[i] = join(base, m)
	}
	cfg.Output.Dir = join(base, cfg.Output.Dir)
	cfg.DB.Path = join(base, cfg.DB.Path)
}

func join(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// OutputPath returns name inside the output directory, or name itself when
// it is absolute.
func (cfg *Config) OutputPath(name string) string {
	return join(cfg.Output.Dir, name)
}
