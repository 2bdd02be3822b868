package correlate

import (
	"fmt"
	"regexp"
	"strings"

	"fortdoc/internal/core/errors"
	"fortdoc/internal/engine/model"
)

var (
	onlyRE   = regexp.MustCompile(`(?i)^\s*,\s*only\s*:\s*`)
	renameRE = regexp.MustCompile(`(?i)^\s*(\w+)\s*=>\s*(\w+)\s*$`)
)

// Modules supplied by the compiler are not expected to be found.
var intrinsicModules = map[string]bool{
	"iso_fortran_env": true,
	"iso_c_binding":   true,
	"ieee_arithmetic": true,
	"ieee_exceptions": true,
	"ieee_features":   true,
	"omp_lib":         true,
	"omp_lib_kinds":   true,
	"openacc":         true,
	"mpi":             true,
	"mpi_f08":         true,
}

// resolveUses points every USE statement at its module and links
// submodules to their ancestor and parent submodule.
func (c *correlator) resolveUses() {
	modules := make(map[string]model.Entity)
	for _, m := range c.p.ExternalModules {
		modules[m.Key()] = m
	}
	// Project modules shadow external stand-ins of the same name.
	for _, m := range c.p.Modules {
		if _, ok := modules[m.Key()]; !ok || isExternal(modules[m.Key()]) {
			modules[m.Key()] = m
		}
	}
	submodules := make(map[string]*model.Submodule)
	for _, s := range c.p.Submodules {
		submodules[s.Key()] = s
	}

	for _, f := range c.p.Files {
		model.Walk(f, func(e model.Entity) bool {
			if s, ok := e.(*model.Submodule); ok {
				if m, ok := modules[strings.ToLower(s.AncestorName)].(*model.Module); ok {
					s.Ancestor = m
				}
				if s.ParentSubmoduleName != "" {
					s.ParentSubmodule = submodules[strings.ToLower(s.ParentSubmoduleName)]
				}
			}
			body := model.BodyOf(e)
			if body == nil {
				return true
			}
			for _, u := range body.Uses {
				if u.Module != nil {
					continue
				}
				if m, ok := modules[strings.ToLower(u.Name)]; ok {
					u.Module = m
					continue
				}
				if !intrinsicModules[strings.ToLower(u.Name)] {
					c.warnAt(e, u.Line, u.Name, "could not find module %q used by %s", u.Name, model.Path(e))
				}
			}
			return true
		})
	}
}

func isExternal(e model.Entity) bool {
	_, ok := e.(*model.ExternalModule)
	return ok
}

// usedModules returns the project modules e uses, directly or through the
// procedures and interface bodies it contains.
func usedModules(e model.Entity) []*model.Module {
	var out []*model.Module
	body := model.BodyOf(e)
	if body == nil {
		return nil
	}
	for _, u := range body.Uses {
		if m, ok := u.Module.(*model.Module); ok {
			out = append(out, m)
		}
	}
	for _, r := range body.Routines() {
		out = append(out, usedModules(r)...)
	}
	for _, i := range body.Interfaces {
		if i.Procedure != nil {
			out = append(out, usedModules(i.Procedure)...)
		}
	}
	return out
}

// dependencies lists the units that must be correlated before u.
func (c *correlator) dependencies(u model.Entity) []model.Entity {
	var out []model.Entity
	if s, ok := u.(*model.Submodule); ok {
		switch {
		case s.Ancestor == nil:
			c.warn(s, s.AncestorName, "could not find ancestor module %q of submodule %s (in %s)",
				s.AncestorName, s.Name, s.File)
			return nil
		case s.ParentSubmoduleName != "" && s.ParentSubmodule == nil:
			c.warn(s, s.ParentSubmoduleName, "could not find parent submodule %q of submodule %s (in %s)",
				s.ParentSubmoduleName, s.Name, s.File)
			out = append(out, s.Ancestor)
		case s.ParentSubmodule != nil:
			out = append(out, s.ParentSubmodule)
		default:
			out = append(out, s.Ancestor)
		}
	}
	for _, m := range usedModules(u) {
		out = append(out, m)
	}
	return out
}

// publicTable returns the table a USE of m imports from.
func publicTable(m model.Entity) *model.SymbolTable {
	switch v := m.(type) {
	case *model.Module:
		return v.Public
	case *model.ExternalModule:
		return v.Public
	}
	return nil
}

// usedEntities applies a USE statement's ONLY list and renames to the
// public table of the used module.
func usedEntities(pub *model.SymbolTable, spec string) *model.SymbolTable {
	if pub == nil {
		return model.NewSymbolTable(nil)
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return pub.Filter(func(string, model.Entity) bool { return true })
	}

	only := false
	if loc := onlyRE.FindStringIndex(spec); loc != nil {
		only = true
		spec = spec[loc[1]:]
	}
	// local names by module name
	renames := make(map[string]string)
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if m := renameRE.FindStringSubmatch(item); m != nil {
			renames[strings.ToLower(m[2])] = strings.ToLower(m[1])
			continue
		}
		if only {
			renames[strings.ToLower(item)] = strings.ToLower(item)
		}
	}

	out := model.NewSymbolTable(nil)
	for _, cat := range model.Categories {
		for name, e := range pub.Entries(cat) {
			local, listed := renames[name]
			switch {
			case listed:
				out.Set(cat, local, e)
			case !only:
				out.Set(cat, name, e)
			}
		}
	}
	return out
}

func (c *correlator) warn(e model.Entity, symbol, format string, args ...interface{}) {
	c.warnAt(e, e.Base().Line, symbol, format, args...)
}

func (c *correlator) warnAt(e model.Entity, line int, symbol, format string, args ...interface{}) {
	err := errors.Resolution(model.Path(e), symbol, format, args...)
	err = errors.AddContext(err, errors.CtxPath, e.Base().File)
	err = errors.AddContext(err, errors.CtxLine, line)
	c.logger.Warn(fmt.Sprintf(format, args...), "entity", model.Path(e), "symbol", symbol, "path", e.Base().File, "line", line)
	c.p.Warn(err)
}
