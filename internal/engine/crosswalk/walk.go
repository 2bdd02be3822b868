package crosswalk

import (
	"log/slog"
	"sort"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

// Var is a variable reached by executable code together with the
// components of it that were referenced.
type Var struct {
	Name      string          `json:"name"`
	VarType   string          `json:"vartype"`
	Initial   string          `json:"initial,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Doc       []string        `json:"doc,omitempty"`
	Variables map[string]*Var `json:"variables,omitempty"`
}

// Result is the cross walk of one program or procedure.
type Result struct {
	Entity model.Entity    `json:"-"`
	Path   string          `json:"path"`
	Tree   Tree            `json:"-"`
	Vars   map[string]*Var `json:"vars"`
	// Unresolved lists referenced top-level names with no declaration.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Units returns every program and procedure with an executable part, in
// file order. Interface bodies are skipped.
func Units(p *project.Project) []model.Entity {
	var out []model.Entity
	for _, f := range p.Files {
		model.Walk(f, func(e model.Entity) bool {
			switch v := e.(type) {
			case *model.Program:
				out = append(out, v)
			case *model.Procedure:
				if !v.InterfaceProcedure() {
					out = append(out, v)
				}
			case *model.Type, *model.Interface:
				return false
			}
			return true
		})
	}
	return out
}

// Run cross walks every unit of a correlated project.
func Run(p *project.Project, logger *slog.Logger) []*Result {
	if logger == nil {
		logger = slog.Default()
	}
	var out []*Result
	for _, u := range Units(p) {
		out = append(out, Walk(u, logger))
	}
	return out
}

// Walk crosses the references of e against its resolved variables. A
// reference whose component cannot be found in the declared type is
// logged and dropped along with everything below it.
func Walk(e model.Entity, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{Entity: e, Path: model.Path(e), Vars: make(map[string]*Var)}
	ex := model.ExecOf(e)
	if ex == nil {
		return res
	}
	res.Tree = BuildTree(References(e, ex))
	log := logger.With("entity", res.Path)

	for _, name := range res.Tree.Keys() {
		v := variableIn(e, name)
		if v == nil {
			res.Unresolved = append(res.Unresolved, name)
			continue
		}
		rec := record(v)
		rec.Filename = v.File
		res.Vars[name] = rec
		cross(rec, v, res.Tree[name], log)
	}
	sort.Strings(res.Unresolved)
	return res
}

func cross(rec *Var, v *model.Variable, sub Tree, log *slog.Logger) {
	if len(sub) == 0 {
		return
	}
	t, ok := protoType(v)
	if !ok {
		log.Debug("reference into variable without derived type", "variable", v.Name, "vartype", v.VarType)
		return
	}
	for _, name := range sub.Keys() {
		comp := t.Component(name)
		if comp == nil {
			log.Debug("component not found", "type", t.Name, "component", name)
			continue
		}
		child := record(comp)
		if rec.Variables == nil {
			rec.Variables = make(map[string]*Var)
		}
		rec.Variables[name] = child
		cross(child, comp, sub[name], log)
	}
}

func record(v *model.Variable) *Var {
	return &Var{
		Name:    v.Name,
		VarType: v.VarType,
		Initial: v.Initial,
		Doc:     v.Doc,
	}
}

// variableIn looks name up among the variables visible inside e, falling
// back to its own declarations when e was never correlated.
func variableIn(e model.Entity, name string) *model.Variable {
	body := model.BodyOf(e)
	if body == nil {
		return nil
	}
	if body.Symbols != nil {
		v, _ := lookupVar(body.Symbols, name)
		return v
	}
	for _, v := range body.Variables {
		if v.Key() == name {
			return v
		}
	}
	if p, ok := e.(*model.Procedure); ok {
		for _, a := range p.Args {
			if v, ok := a.(*model.Variable); ok && v.Key() == name {
				return v
			}
		}
	}
	return nil
}

func lookupVar(st *model.SymbolTable, name string) (*model.Variable, bool) {
	e, ok := st.Lookup(model.Vars, name)
	if !ok {
		return nil, false
	}
	v, ok := e.(*model.Variable)
	return v, ok
}

func protoType(v *model.Variable) (*model.Type, bool) {
	if v.Proto == nil {
		return nil, false
	}
	t, ok := v.Proto.Target.(*model.Type)
	return t, ok && t != nil
}
