// # internal/ui/report/export.go

// Package report renders a correlated project as JSON documents and as a
// terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/iotrack"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

// Project is the JSON form of a correlated project. Links between entities
// are rendered as entity paths.
type Project struct {
	Name      string              `json:"name"`
	Stats     project.LineStats   `json:"stats"`
	Files     []*File             `json:"files"`
	External  []*Entity           `json:"external_modules,omitempty"`
	Index     *crosswalk.Index    `json:"index,omitempty"`
	CrossWalk []*crosswalk.Result `json:"crosswalk,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
}

type File struct {
	Path     string    `json:"path"`
	Fixed    bool      `json:"fixed,omitempty"`
	Doc      []string  `json:"doc,omitempty"`
	Entities []*Entity `json:"entities"`
}

type Entity struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Path        string            `json:"path"`
	Permission  string            `json:"permission,omitempty"`
	Line        int               `json:"line,omitempty"`
	NumLines    int               `json:"num_lines,omitempty"`
	Doc         []string          `json:"doc,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	Declaration string            `json:"declaration,omitempty"`
	ProcKind    string            `json:"proc_kind,omitempty"`
	Result      string            `json:"result,omitempty"`
	Extends     string            `json:"extends,omitempty"`
	Implements  string            `json:"implements,omitempty"`
	Bindings    []string          `json:"bindings,omitempty"`
	URL         string            `json:"url,omitempty"`
	Uses        []Use             `json:"uses,omitempty"`
	Calls       []Call            `json:"calls,omitempty"`
	Children    []*Entity         `json:"children,omitempty"`
}

type Use struct {
	Module   string `json:"module"`
	Spec     string `json:"spec,omitempty"`
	Line     int    `json:"line"`
	Resolved bool   `json:"resolved"`
	URL      string `json:"url,omitempty"`
}

type Call struct {
	Chain  string `json:"chain"`
	Line   int    `json:"line"`
	Target string `json:"target,omitempty"`
}

// Export renders p. ix and walks may be nil.
func Export(p *project.Project, ix *crosswalk.Index, walks []*crosswalk.Result) *Project {
	out := &Project{
		Name:      p.Name,
		Stats:     p.Stats,
		Files:     make([]*File, 0, len(p.Files)),
		Index:     ix,
		CrossWalk: walks,
	}
	for _, f := range p.Files {
		ef := &File{Path: f.Path, Fixed: f.Fixed, Doc: f.Doc, Entities: []*Entity{}}
		for _, c := range model.Children(f) {
			if e := entity(c); e != nil {
				ef.Entities = append(ef.Entities, e)
			}
		}
		out.Files = append(out.Files, ef)
	}
	for _, m := range p.ExternalModules {
		out.External = append(out.External, entity(m))
	}
	for _, w := range p.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return out
}

func entity(e model.Entity) *Entity {
	n := e.Base()
	if n.Hidden {
		return nil
	}
	out := &Entity{
		Name:       n.Name,
		Kind:       e.Kind().String(),
		Path:       model.Path(e),
		Permission: n.Permission,
		Line:       n.Line,
		NumLines:   n.NumLines,
		Doc:        n.Doc,
		Meta:       n.Meta,
	}

	switch v := e.(type) {
	case *model.Variable:
		out.Declaration = v.FullDeclaration()
	case *model.BoundProcedure:
		out.Declaration = v.FullDeclaration()
		for _, b := range v.Bindings {
			out.Bindings = append(out.Bindings, bindingPath(b))
		}
	case *model.Type:
		out.NumLines = v.NumLinesAll
		if v.Extends != nil {
			out.Extends = model.Path(v.Extends)
		} else {
			out.Extends = v.ExtendsName
		}
	case *model.Procedure:
		out.ProcKind = v.ProcKind.String()
		if v.RetVar != nil {
			out.Result = v.RetVar.Name
		}
		if v.Implements != nil {
			out.Implements = model.Path(v.Implements)
		}
	case *model.ExternalModule:
		out.URL = v.URL
	case *model.ModuleProcRef:
		if v.Procedure != nil {
			out.Implements = model.Path(v.Procedure)
		}
	}

	if body := model.BodyOf(e); body != nil {
		for _, u := range body.Uses {
			out.Uses = append(out.Uses, use(u))
		}
	}
	if ex := model.ExecOf(e); ex != nil {
		for _, c := range ex.Calls {
			call := Call{Chain: strings.Join(c.Chain, "%"), Line: c.Line}
			if c.Target != nil {
				call.Target = model.Path(c.Target)
			}
			out.Calls = append(out.Calls, call)
		}
	}
	for _, c := range model.Children(e) {
		if ce := entity(c); ce != nil {
			out.Children = append(out.Children, ce)
		}
	}
	return out
}

func bindingPath(b model.Binding) string {
	if b.Target != nil {
		return model.Path(b.Target)
	}
	return b.Name
}

func use(u *model.Use) Use {
	out := Use{Module: u.Name, Spec: u.Spec, Line: u.Line, Resolved: u.Module != nil}
	if ext, ok := u.Module.(*model.ExternalModule); ok {
		out.URL = ext.URL
	}
	return out
}

// IOReport is the content of io.json: the I/O summary of every unit that
// performed I/O, keyed by unit path.
func IOReport(p *project.Project) map[string]iotrack.Report {
	return crosswalk.Reports(crosswalk.Units(p))
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeOutput(path, append(data, '\n'))
}

// WriteModuleGraph writes the DOT rendering of ModuleGraph to path.
func WriteModuleGraph(path string, p *project.Project) error {
	return writeOutput(path, []byte(ModuleGraph(p)))
}

// writeOutput creates the parent directory and replaces path through a
// temporary file beside it, so readers see either the old or the new
// document.
func writeOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
