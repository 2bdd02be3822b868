package report

import (
	"fmt"
	"sort"
	"strings"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

type graphNode struct {
	id, label string
	kind      model.Kind
	missing   bool
}

type graphEdge struct {
	from, to string
	extends  bool
}

// ModuleGraph renders the USE dependencies of the project's program units
// as a Graphviz digraph. Modules on a dependency cycle are highlighted.
func ModuleGraph(p *project.Project) string {
	nodes := make(map[string]*graphNode)
	var edges []graphEdge
	seenEdge := make(map[graphEdge]bool)

	addNode := func(e model.Entity) string {
		id := e.Kind().String() + ":" + strings.ToLower(e.Base().Name)
		if _, ok := nodes[id]; !ok {
			nodes[id] = &graphNode{id: id, label: e.Base().Name, kind: e.Kind()}
		}
		return id
	}
	addEdge := func(ed graphEdge) {
		if ed.from != ed.to && !seenEdge[ed] {
			seenEdge[ed] = true
			edges = append(edges, ed)
		}
	}

	var units []model.Entity
	for _, m := range p.Modules {
		units = append(units, m)
	}
	for _, s := range p.Submodules {
		units = append(units, s)
	}
	for _, pr := range p.Programs {
		units = append(units, pr)
	}
	for _, u := range units {
		from := addNode(u)
		model.Walk(u, func(e model.Entity) bool {
			body := model.BodyOf(e)
			if body == nil {
				return true
			}
			for _, use := range body.Uses {
				var to string
				if use.Module != nil {
					to = addNode(use.Module)
				} else {
					to = "missing:" + strings.ToLower(use.Name)
					if _, ok := nodes[to]; !ok {
						nodes[to] = &graphNode{id: to, label: use.Name, missing: true}
					}
				}
				addEdge(graphEdge{from: from, to: to})
			}
			return true
		})
		if s, ok := u.(*model.Submodule); ok {
			var parent model.Entity
			if s.ParentSubmodule != nil {
				parent = s.ParentSubmodule
			} else if s.Ancestor != nil {
				parent = s.Ancestor
			}
			if parent != nil {
				addEdge(graphEdge{from: from, to: addNode(parent), extends: true})
			}
		}
	}

	cyclic := cycleMembers(nodes, edges)

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})

	var buf strings.Builder
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  overlap=false;\n\n")

	buf.WriteString("  subgraph cluster_project {\n")
	fmt.Fprintf(&buf, "    label=%q;\n", p.Name)
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, id := range ids {
		n := nodes[id]
		if n.missing || n.kind == model.KindExternalModule {
			continue
		}
		shape := "box"
		if n.kind == model.KindProgram {
			shape = "ellipse"
		}
		if cyclic[id] {
			fmt.Fprintf(&buf, "    %q [label=%q, shape=%s, fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", id, n.label, shape)
		} else {
			fmt.Fprintf(&buf, "    %q [label=%q, shape=%s, color=\"darkslategrey\"];\n", id, n.label, shape)
		}
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, id := range ids {
		n := nodes[id]
		switch {
		case n.kind == model.KindExternalModule:
			fmt.Fprintf(&buf, "  %q [label=%q];\n", id, n.label)
		case n.missing:
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\"];\n", id, n.label)
		}
	}
	buf.WriteString("\n")

	for _, e := range edges {
		switch {
		case cyclic[e.from] && cyclic[e.to] && !e.extends:
			fmt.Fprintf(&buf, "  %q -> %q [color=\"red\", penwidth=3.0];\n", e.from, e.to)
		case e.extends:
			fmt.Fprintf(&buf, "  %q -> %q [color=\"steelblue\", style=dotted, arrowhead=empty];\n", e.from, e.to)
		case nodes[e.to].missing || nodes[e.to].kind == model.KindExternalModule:
			fmt.Fprintf(&buf, "  %q -> %q [color=\"grey\", style=dashed];\n", e.from, e.to)
		default:
			fmt.Fprintf(&buf, "  %q -> %q [color=\"forestgreen\"];\n", e.from, e.to)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// cycleMembers returns the nodes of every strongly connected component
// with more than one node, found with Tarjan's algorithm over USE edges.
func cycleMembers(nodes map[string]*graphNode, edges []graphEdge) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		if !e.extends {
			adj[e.from] = append(adj[e.from], e.to)
		}
	}
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	index := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	next := 0
	out := make(map[string]bool)

	var visit func(v string)
	visit = func(v string) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range adj[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			for _, w := range scc {
				out[w] = true
			}
		}
	}
	for _, id := range ids {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}
	return out
}
