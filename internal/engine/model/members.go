package model

import (
	"fmt"
	"strings"
)

// Interface is a generic, abstract or specific interface block. Specific
// and abstract blocks are split into one wrapper per procedure, carried in
// Procedure.
type Interface struct {
	Node
	Generic     bool
	Abstract    bool
	Subroutines []*Procedure
	Functions   []*Procedure
	ModProcs    []*ModuleProcRef
	Procedure   *Procedure
	// ProcPointers are procedure variables named by a generic interface.
	ProcPointers []*Variable
}

func (*Interface) Kind() Kind { return KindInterface }

// Routines returns the procedures declared in the block.
func (i *Interface) Routines() []*Procedure {
	out := make([]*Procedure, 0, len(i.Functions)+len(i.Subroutines)+1)
	out = append(out, i.Functions...)
	out = append(out, i.Subroutines...)
	if i.Procedure != nil {
		out = append(out, i.Procedure)
	}
	return out
}

// ModuleProcRef names a procedure defined elsewhere from inside an interface.
type ModuleProcRef struct {
	Node
	Procedure Entity
}

func (*ModuleProcRef) Kind() Kind { return KindModuleProcRef }

type Type struct {
	Node
	ExtendsName string
	Extends     *Type
	Attribs     []string
	Sequence    bool
	ParamNames  []string
	Parameters  []*Variable
	Variables   []*Variable
	BoundProcs  []*BoundProcedure
	FinalProcs  []*FinalProc
	Constructor Entity
	// Inherited components are owned by the base type.
	InheritedVars []*Variable
	// Inherited bindings; generic ones are copies owned by this type.
	InheritedProcs []*BoundProcedure
	NumLinesAll    int
}

func (*Type) Kind() Kind { return KindType }

// AllVariables returns inherited then local components.
func (t *Type) AllVariables() []*Variable {
	out := make([]*Variable, 0, len(t.InheritedVars)+len(t.Variables))
	out = append(out, t.InheritedVars...)
	return append(out, t.Variables...)
}

// AllBoundProcs returns inherited then local bindings.
func (t *Type) AllBoundProcs() []*BoundProcedure {
	out := make([]*BoundProcedure, 0, len(t.InheritedProcs)+len(t.BoundProcs))
	out = append(out, t.InheritedProcs...)
	return append(out, t.BoundProcs...)
}

// Component finds a component, local or inherited, by name.
func (t *Type) Component(name string) *Variable {
	name = strings.ToLower(name)
	for _, v := range t.AllVariables() {
		if v.Key() == name {
			return v
		}
	}
	return nil
}

// Proto is the type/class/procedure argument of a declaration.
type Proto struct {
	Name   string
	Args   string
	Target Entity
}

// Display renders the prototype, preferring the resolved target's name.
func (p *Proto) Display() string {
	name := p.Name
	if p.Target != nil {
		name = p.Target.Base().Name
	}
	if p.Args != "" {
		return name + "(" + p.Args + ")"
	}
	return name
}

type Variable struct {
	Node
	VarType   string
	KindParam string
	StrLen    string
	Proto     *Proto
	Dimension string
	Initial   string
	Intent    string
	Optional  bool
	Parameter bool
	Points    bool
	Attribs   []string
	Implicit  bool
}

func (*Variable) Kind() Kind { return KindVariable }

// ImplicitType applies the default implicit typing rule.
func ImplicitType(name string) string {
	if name == "" {
		return "real"
	}
	if c := name[0] | 0x20; c >= 'i' && c <= 'n' {
		return "integer"
	}
	return "real"
}

// FullType renders vartype(kind=K, len=L) or vartype(proto).
func (v *Variable) FullType() string {
	var params []string
	if v.KindParam != "" {
		params = append(params, "kind="+v.KindParam)
	}
	if v.StrLen != "" {
		params = append(params, "len="+v.StrLen)
	}
	switch {
	case len(params) > 0:
		return fmt.Sprintf("%s(%s)", v.VarType, strings.Join(params, ", "))
	case v.Proto != nil:
		return fmt.Sprintf("%s(%s)", v.VarType, v.Proto.Display())
	}
	return v.VarType
}

// FullDeclaration is FullType followed by attributes, dimension and parameter.
func (v *Variable) FullDeclaration() string {
	var b strings.Builder
	b.WriteString(v.FullType())
	for _, a := range v.Attribs {
		b.WriteString(", " + a)
	}
	switch {
	case strings.HasPrefix(v.Dimension, "("):
		b.WriteString(", dimension" + v.Dimension)
	case strings.HasPrefix(v.Dimension, "["):
		b.WriteString(", codimension" + v.Dimension)
	}
	if v.Parameter {
		b.WriteString(", parameter")
	}
	return b.String()
}

// TypeName returns the derived type a type/class variable refers to.
func (v *Variable) TypeName() string {
	if v.Proto == nil || (v.VarType != "type" && v.VarType != "class") {
		return ""
	}
	if t, ok := v.Proto.Target.(*Type); ok {
		return t.Name
	}
	return v.Proto.Name
}

// Binding is one target of a bound procedure.
type Binding struct {
	Name   string
	Target Entity
}

func (b Binding) Display() string {
	if b.Target != nil {
		return b.Target.Base().Name
	}
	return b.Name
}

type BoundProcedure struct {
	Node
	Generic   bool
	Deferred  bool
	Attribs   []string
	ProtoName string
	Proto     Entity
	Bindings  []Binding
}

func (*BoundProcedure) Kind() Kind { return KindBoundProcedure }

// BindingType is "generic", "procedure" or "procedure(proto)".
func (b *BoundProcedure) BindingType() string {
	switch {
	case b.Generic:
		return "generic"
	case b.ProtoName == "":
		return "procedure"
	case b.Proto != nil:
		return "procedure(" + b.Proto.Base().Name + ")"
	}
	return "procedure(" + b.ProtoName + ")"
}

// FullDeclaration renders the binding line.
func (b *BoundProcedure) FullDeclaration() string {
	parts := []string{b.Permission}
	if b.Deferred {
		parts = append(parts, "deferred")
	}
	parts = append(parts, b.Attribs...)
	return b.BindingType() + ", " + strings.Join(parts, ", ")
}

// CopyFor returns a shallow copy of b owned by t.
func (b *BoundProcedure) CopyFor(t *Type) *BoundProcedure {
	c := *b
	c.Parent = t
	c.Scope = t
	c.Bindings = append([]Binding(nil), b.Bindings...)
	return &c
}

type FinalProc struct {
	Node
	Procedure Entity
}

func (*FinalProc) Kind() Kind { return KindFinalProc }

// Common is one named (or blank) common block.
type Common struct {
	Node
	VarNames  []string
	Variables []*Variable
	OtherUses []*Common
}

func (*Common) Kind() Kind { return KindCommon }

type Namelist struct {
	Node
	VarNames []string
	// Variables is aligned with VarNames; unresolved entries are nil.
	Variables []*Variable
}

func (*Namelist) Kind() Kind { return KindNamelist }

type Enum struct {
	Node
	Variables []*Variable
}

func (*Enum) Kind() Kind { return KindEnum }

// Use is a USE statement. Module is nil until correlation resolves it.
type Use struct {
	Name   string
	Spec   string
	Line   int
	Module Entity
}

// Call is a reference to a procedure as a chain of name segments.
type Call struct {
	Chain  []string
	Line   int
	Target Entity
}

// Name returns the resolved target's name, or the last chain segment.
func (c *Call) Name() string {
	if c.Target != nil {
		return c.Target.Base().Name
	}
	if len(c.Chain) == 0 {
		return ""
	}
	return c.Chain[len(c.Chain)-1]
}

// Resolved reports whether correlation found the call's target.
func (c *Call) Resolved() bool { return c.Target != nil }
