// Package model holds the entity tree built from Fortran sources.
//
// Every entity has exactly one owning Parent. Lexical lookups go through
// Scope, which usually equals Parent but differs for interface wrappers and
// inherited members. Cross references (uses, calls, prototypes, bindings)
// are weak: they point at entities owned elsewhere.
package model

import "strings"

type Kind int

const (
	KindSourceFile Kind = iota
	KindModule
	KindSubmodule
	KindProgram
	KindBlockData
	KindProcedure
	KindInterface
	KindType
	KindVariable
	KindBoundProcedure
	KindFinalProc
	KindCommon
	KindNamelist
	KindEnum
	KindModuleProcRef
	KindExternalModule
)

var kindNames = [...]string{
	KindSourceFile:     "sourcefile",
	KindModule:         "module",
	KindSubmodule:      "submodule",
	KindProgram:        "program",
	KindBlockData:      "blockdata",
	KindProcedure:      "proc",
	KindInterface:      "interface",
	KindType:           "type",
	KindVariable:       "variable",
	KindBoundProcedure: "boundproc",
	KindFinalProc:      "finalproc",
	KindCommon:         "common",
	KindNamelist:       "namelist",
	KindEnum:           "enum",
	KindModuleProcRef:  "moduleprocedure",
	KindExternalModule: "external",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == strings.ToLower(s) {
			return Kind(k), true
		}
	}
	return 0, false
}

// Permissions.
const (
	Public    = "public"
	Private   = "private"
	Protected = "protected"
)

// Entity is implemented only by the types in this package.
type Entity interface {
	Base() *Node
	Kind() Kind
	entity()
}

// Node carries the fields shared by every entity.
type Node struct {
	Name       string
	Permission string
	Parent     Entity
	Scope      Entity
	Doc        []string
	Meta       map[string]string
	File       string
	Line       int
	NumLines   int
	Hidden     bool
}

func (n *Node) Base() *Node { return n }

func (n *Node) entity() {}

// Key is the case-folded name used for lookups.
func (n *Node) Key() string { return strings.ToLower(n.Name) }

// Documented reports whether any doc text was attached.
func (n *Node) Documented() bool {
	for _, l := range n.Doc {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

// MetaValue returns a metadata value, inheriting it from enclosing scopes.
func MetaValue(e Entity, key string) (string, bool) {
	for cur := e; cur != nil; cur = cur.Base().Parent {
		if v, ok := cur.Base().Meta[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Name returns e's name, or "" for nil.
func Name(e Entity) string {
	if e == nil {
		return ""
	}
	return e.Base().Name
}

// Path joins the names of e and its owners, outermost first, skipping the
// source file.
func Path(e Entity) string {
	var parts []string
	for cur := e; cur != nil; cur = cur.Base().Parent {
		if cur.Kind() == KindSourceFile {
			break
		}
		name := cur.Base().Name
		if name == "" {
			name = "(" + cur.Kind().String() + ")"
		}
		parts = append(parts, name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

// SourceFileOf walks the owner chain up to the file entity.
func SourceFileOf(e Entity) *SourceFile {
	for cur := e; cur != nil; cur = cur.Base().Parent {
		if f, ok := cur.(*SourceFile); ok {
			return f
		}
	}
	return nil
}
