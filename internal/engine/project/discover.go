package project

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Source is one file selected for parsing.
type Source struct {
	Path  string
	Fixed bool
}

// Discover walks the source directories and returns the Fortran files to
// parse, sorted by path.
func Discover(opts Options) ([]Source, error) {
	dirGlobs, err := compileGlobs(opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	// Plain paths in Exclude also drop everything below them.
	excludePaths := excludeDirs(opts.Exclude)
	free := extensionSet(opts.Extensions)
	fixed := extensionSet(opts.FixedExtensions)

	seen := make(map[string]bool)
	var out []Source
	for _, root := range opts.SrcDirs {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel := relSlash(root, path)
			if d.IsDir() {
				if path != root && matchAny(dirGlobs, d.Name(), rel) {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			isFixed := fixed[ext]
			if !free[ext] && !isFixed {
				return nil
			}
			if matchAny(fileGlobs, d.Name(), rel) || underAny(excludePaths, rel) {
				return nil
			}
			if clean := filepath.Clean(path); !seen[clean] {
				seen[clean] = true
				out = append(out, Source{Path: clean, Fixed: isFixed})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// IsSource reports whether path has one of the configured extensions, and
// whether it is fixed form.
func IsSource(opts Options, path string) (ok, fixed bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if extensionSet(opts.FixedExtensions)[ext] {
		return true, true
	}
	return extensionSet(opts.Extensions)[ext], false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, candidates ...string) bool {
	for _, g := range globs {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

// excludeDirs picks the plain relative paths out of the exclude patterns,
// in the slash form relSlash produces. Bare names and globs are left to
// the glob matchers.
func excludeDirs(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
		if !strings.Contains(p, "/") || strings.ContainsAny(p, "*?[]{}") {
			continue
		}
		switch p = path.Clean(p); p {
		case ".", "/", "..":
			continue
		}
		out = append(out, p)
	}
	return out
}

// underAny reports whether rel is one of dirs or lies below one.
func underAny(dirs []string, rel string) bool {
	for _, d := range dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts)*2)
	for _, e := range exts {
		e = strings.TrimPrefix(e, ".")
		set[e] = true
		set[strings.ToUpper(e)] = true
	}
	return set
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
