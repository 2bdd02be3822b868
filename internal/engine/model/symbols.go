package model

import (
	"sort"
	"strings"
)

// Category partitions a symbol table the way Fortran namespaces do for
// documentation purposes.
type Category int

const (
	Procs Category = iota
	Types
	Vars
	AbsInterfaces
	numCategories
)

// Categories lists every category in lookup order.
var Categories = []Category{Procs, Types, Vars, AbsInterfaces}

func (c Category) String() string {
	switch c {
	case Procs:
		return "procs"
	case Types:
		return "types"
	case Vars:
		return "vars"
	case AbsInterfaces:
		return "absinterfaces"
	}
	return "unknown"
}

// SymbolTable maps lower-case names to entities per category. Lookups fall
// back to Outer, the table of the enclosing lexical scope.
type SymbolTable struct {
	tables [numCategories]map[string]Entity
	Outer  *SymbolTable
}

func NewSymbolTable(outer *SymbolTable) *SymbolTable {
	st := &SymbolTable{Outer: outer}
	for i := range st.tables {
		st.tables[i] = make(map[string]Entity)
	}
	return st
}

func (s *SymbolTable) Set(c Category, name string, e Entity) {
	s.tables[c][strings.ToLower(name)] = e
}

// Local looks name up in this table only.
func (s *SymbolTable) Local(c Category, name string) (Entity, bool) {
	e, ok := s.tables[c][strings.ToLower(name)]
	return e, ok
}

// Lookup searches this table then the enclosing scopes.
func (s *SymbolTable) Lookup(c Category, name string) (Entity, bool) {
	key := strings.ToLower(name)
	for cur := s; cur != nil; cur = cur.Outer {
		if e, ok := cur.tables[c][key]; ok {
			return e, true
		}
	}
	return nil, false
}

// Merge copies entries of m into the table, replacing existing names.
func (s *SymbolTable) Merge(c Category, m map[string]Entity) {
	for k, v := range m {
		s.tables[c][k] = v
	}
}

// Entries returns the local entries of one category.
func (s *SymbolTable) Entries(c Category) map[string]Entity {
	return s.tables[c]
}

// Flatten returns the visible entries of a category, inner scopes winning.
func (s *SymbolTable) Flatten(c Category) map[string]Entity {
	var chain []*SymbolTable
	for cur := s; cur != nil; cur = cur.Outer {
		chain = append(chain, cur)
	}
	out := make(map[string]Entity)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].tables[c] {
			out[k] = v
		}
	}
	return out
}

// Names returns the sorted local names of a category.
func (s *SymbolTable) Names(c Category) []string {
	names := make([]string, 0, len(s.tables[c]))
	for k := range s.tables[c] {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len is the number of local entries across all categories.
func (s *SymbolTable) Len() int {
	n := 0
	for _, t := range s.tables {
		n += len(t)
	}
	return n
}

// Filter returns a new table holding the local entries for which keep is true.
func (s *SymbolTable) Filter(keep func(name string, e Entity) bool) *SymbolTable {
	out := NewSymbolTable(nil)
	for c := range s.tables {
		for k, v := range s.tables[c] {
			if keep(k, v) {
				out.tables[c][k] = v
			}
		}
	}
	return out
}
