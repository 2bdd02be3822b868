package config

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"fortdoc/internal/core/config/helpers"
)

var sortKeys = []string{"src", "alpha", "permission", "permission-alpha", "type", "type-alpha"}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	for i, dir := range cfg.Project.SrcDirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("project.src_dirs[%d] must not be empty", i)
		}
	}
	for i, a := range cfg.Project.SrcDirs {
		for _, b := range cfg.Project.SrcDirs[i+1:] {
			if helpers.IsPathOverlap(helpers.CleanDir(a), helpers.CleanDir(b)) {
				return fmt.Errorf("project.src_dirs %q and %q overlap", a, b)
			}
		}
	}
	for _, ext := range cfg.Project.FixedExtensions {
		if slices.Contains(cfg.Project.Extensions, ext) {
			return fmt.Errorf("extension %q is listed as both free and fixed form", ext)
		}
	}
	for _, pattern := range cfg.Project.Exclude {
		if err := helpers.ValidateGlob(pattern); err != nil {
			return fmt.Errorf("project.exclude: %w", err)
		}
	}
	return nil
}

func validateParse(cfg *Config) error {
	marks := map[string]string{
		"docmark":        cfg.Parse.Docmark,
		"predocmark":     cfg.Parse.Predocmark,
		"docmark_alt":    cfg.Parse.DocmarkAlt,
		"predocmark_alt": cfg.Parse.PredocmarkAlt,
	}
	seen := make(map[string]string, len(marks))
	for _, key := range []string{"docmark", "predocmark", "docmark_alt", "predocmark_alt"} {
		mark := marks[key]
		if utf8.RuneCountInString(mark) != 1 {
			return fmt.Errorf("parse.%s must be a single character, got %q", key, mark)
		}
		if other, dup := seen[mark]; dup {
			return fmt.Errorf("parse.%s and parse.%s are both %q", other, key, mark)
		}
		seen[mark] = key
	}
	if cfg.Parse.Workers < 0 {
		return fmt.Errorf("parse.workers must be >= 0, got %d", cfg.Parse.Workers)
	}
	for i, v := range cfg.Parse.ExtraVartypes {
		if v == "" {
			return fmt.Errorf("parse.extra_vartypes[%d] must not be empty", i)
		}
	}
	return nil
}

func validateDisplay(cfg *Config) error {
	for _, d := range cfg.Display.Display {
		switch d {
		case "public", "private", "protected", "none":
		default:
			return fmt.Errorf("display.display entries must be public, private, protected or none, got %q", d)
		}
	}
	if !slices.Contains(sortKeys, cfg.Display.Sort) {
		return fmt.Errorf("display.sort must be one of: %s", strings.Join(sortKeys, ", "))
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.JSON) == strings.TrimSpace(cfg.Output.IOJSON) {
		return fmt.Errorf("output.json and output.io_json must differ")
	}
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled is set")
	}
	if cfg.DB.KeepRuns < 0 {
		return fmt.Errorf("db.keep_runs must be >= 0")
	}
	if cfg.DB.QueueCapacity < 0 {
		return fmt.Errorf("db.queue_capacity must be >= 0")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	if cfg.Watch.MaxRebuildsPerSecond < 0 {
		return fmt.Errorf("watch.max_rebuilds_per_second must be >= 0")
	}
	return nil
}
