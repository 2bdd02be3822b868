package model

import "fortdoc/internal/engine/iotrack"

// Body is the declaration content shared by program units.
type Body struct {
	Uses          []*Use
	Variables     []*Variable
	Types         []*Type
	Interfaces    []*Interface
	AbsInterfaces []*Interface
	Subroutines   []*Procedure
	Functions     []*Procedure
	ModProcedures []*Procedure
	Common        []*Common
	Enums         []*Enum
	Namelists     []*Namelist

	Symbols *SymbolTable
}

// Routines returns functions, subroutines and module procedures in that order.
func (b *Body) Routines() []*Procedure {
	out := make([]*Procedure, 0, len(b.Functions)+len(b.Subroutines)+len(b.ModProcedures))
	out = append(out, b.Functions...)
	out = append(out, b.Subroutines...)
	return append(out, b.ModProcedures...)
}

// BodyOf returns the declaration body of program units.
func BodyOf(e Entity) *Body {
	switch v := e.(type) {
	case *Module:
		return &v.Body
	case *Submodule:
		return &v.Body
	case *Program:
		return &v.Body
	case *Procedure:
		return &v.Body
	case *BlockData:
		return &v.Body
	}
	return nil
}

// Exec holds what the executable part of a unit revealed.
type Exec struct {
	Calls        []*Call
	MemberAccess []string
	Other        []string
	IO           iotrack.Report
	IOStats      iotrack.Stats
	Stragglers   int
}

// ExecOf returns the executable record of programs and procedures.
func ExecOf(e Entity) *Exec {
	switch v := e.(type) {
	case *Program:
		return &v.Exec
	case *Procedure:
		return &v.Exec
	}
	return nil
}

type SourceFile struct {
	Node
	Path        string
	Fixed       bool
	Modules     []*Module
	Submodules  []*Submodule
	Subroutines []*Procedure
	Functions   []*Procedure
	Programs    []*Program
	BlockData   []*BlockData
}

func (*SourceFile) Kind() Kind { return KindSourceFile }

type Module struct {
	Node
	Body
	// PublicList holds lower-case names declared or imported as public.
	PublicList  []string
	Public      *SymbolTable
	Descendants []*Submodule
	Deps        []Entity
}

func (*Module) Kind() Kind { return KindModule }

// Submodule extends a module or another submodule.
type Submodule struct {
	Module
	AncestorName        string
	ParentSubmoduleName string
	Ancestor            Entity
	ParentSubmodule     *Submodule
	Ancestry            []Entity
}

func (*Submodule) Kind() Kind { return KindSubmodule }

type Program struct {
	Node
	Body
	Exec
}

func (*Program) Kind() Kind { return KindProgram }

type BlockData struct {
	Node
	Body
}

func (*BlockData) Kind() Kind { return KindBlockData }

type ProcKind int

const (
	Subroutine ProcKind = iota
	Function
	ModuleProcedure
)

func (k ProcKind) String() string {
	switch k {
	case Function:
		return "Function"
	case ModuleProcedure:
		return "Module Procedure"
	}
	return "Subroutine"
}

type Procedure struct {
	Node
	Body
	Exec
	ProcKind ProcKind
	Attribs  []string
	// IsModule marks separate module procedures (interface or implementation).
	IsModule bool
	ArgNames []string
	// Args holds *Variable or *Procedure entries once cleanup has run.
	Args       []Entity
	ResultName string
	RetVar     *Variable
	BindC      string
	Implements Entity
	Binding    *BoundProcedure
	External   bool
}

func (*Procedure) Kind() Kind { return KindProcedure }

// InterfaceProcedure reports whether p only declares an interface.
func (p *Procedure) InterfaceProcedure() bool {
	intr, ok := p.Parent.(*Interface)
	return ok && !intr.Generic
}

// ExternalModule stands in for a module documented outside the project.
type ExternalModule struct {
	Node
	URL    string
	Public *SymbolTable
	// Stubs own the placeholder entities referenced from Public.
	Stubs []Entity
}

func (*ExternalModule) Kind() Kind { return KindExternalModule }
