package crosswalk

import (
	"sort"
	"strings"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

// Index holds the project-wide lookup tables. It is built once after
// correlation and only read afterwards.
type Index struct {
	// UnitFiles maps an I/O unit to the files opened on it anywhere.
	UnitFiles map[string][]string `json:"unit_files"`
	// Defaults maps type%component to the component's default value.
	Defaults map[string]string `json:"component_defaults"`
	// VarTypes maps a variable name to its derived type or intrinsic type.
	// The first declaration in file order wins.
	VarTypes map[string]string `json:"variable_types"`
}

func BuildIndex(p *project.Project) *Index {
	ix := &Index{
		UnitFiles: make(map[string][]string),
		Defaults:  make(map[string]string),
		VarTypes:  make(map[string]string),
	}

	files := make(map[string]map[string]struct{})
	for _, u := range Units(p) {
		ex := model.ExecOf(u)
		for unit, us := range ex.IOStats.Units {
			if files[unit] == nil {
				files[unit] = make(map[string]struct{})
			}
			for _, f := range us.Files {
				files[unit][f] = struct{}{}
			}
		}
	}
	for unit, set := range files {
		list := make([]string, 0, len(set))
		for f := range set {
			list = append(list, f)
		}
		sort.Strings(list)
		ix.UnitFiles[unit] = list
	}

	for _, t := range p.Types {
		for _, v := range t.AllVariables() {
			if v.Initial != "" {
				ix.Defaults[t.Key()+"%"+v.Key()] = v.Initial
			}
		}
	}

	for _, f := range p.Files {
		model.Walk(f, func(e model.Entity) bool {
			v, ok := e.(*model.Variable)
			if !ok {
				_, isType := e.(*model.Type)
				return !isType
			}
			if _, seen := ix.VarTypes[v.Key()]; !seen {
				if name := v.TypeName(); name != "" {
					ix.VarTypes[v.Key()] = name
				} else {
					ix.VarTypes[v.Key()] = v.VarType
				}
			}
			return false
		})
	}
	return ix
}

func (ix *Index) FilesOf(unit string) []string {
	return ix.UnitFiles[strings.TrimSpace(unit)]
}

func (ix *Index) Default(typeName, component string) (string, bool) {
	v, ok := ix.Defaults[strings.ToLower(typeName)+"%"+strings.ToLower(component)]
	return v, ok
}

func (ix *Index) TypeOf(variable string) (string, bool) {
	t, ok := ix.VarTypes[strings.ToLower(variable)]
	return t, ok
}
