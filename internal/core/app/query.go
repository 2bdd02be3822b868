package app

import (
	"strings"

	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/iotrack"
	"fortdoc/internal/engine/model"
)

// Find returns the entities of the last build named name, of any of kinds
// when given, in file order. Hidden entities are included.
func (a *App) Find(name string, kinds ...model.Kind) []model.Entity {
	b := a.Last()
	if b == nil {
		return nil
	}
	match := func(e model.Entity) bool {
		if !strings.EqualFold(e.Base().Name, name) {
			return false
		}
		if len(kinds) == 0 {
			return true
		}
		for _, k := range kinds {
			if e.Kind() == k {
				return true
			}
		}
		return false
	}

	var out []model.Entity
	for _, f := range b.Project.Files {
		model.Walk(f, func(e model.Entity) bool {
			if match(e) {
				out = append(out, e)
			}
			return true
		})
	}
	return out
}

// IOSessions returns the I/O sessions of the last build on file, compared
// by normalized file key. An empty file returns every session.
func (a *App) IOSessions(file string) []crosswalk.IOSession {
	b := a.Last()
	if b == nil {
		return nil
	}
	if file == "" {
		return b.Sessions
	}
	key := iotrack.NormalizeKey(file)
	var out []crosswalk.IOSession
	for _, s := range b.Sessions {
		if s.File == key {
			out = append(out, s)
		}
	}
	return out
}
