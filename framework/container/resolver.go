package container

import (
	"fmt"
	"strings"

	"github.com/km-arc/summer/framework/typeid"
)

// typeGraph groups definitions by type identity, keeping the order in which
// each type was first registered so traversal is reproducible.
type typeGraph struct {
	types  []typeid.ID
	byType map[typeid.ID][]Definition
}

func newTypeGraph(defs []Definition) *typeGraph {
	g := &typeGraph{byType: make(map[typeid.ID][]Definition, len(defs))}
	for _, def := range defs {
		if _, seen := g.byType[def.Type]; !seen {
			g.types = append(g.types, def.Type)
		}
		g.byType[def.Type] = append(g.byType[def.Type], def)
	}
	return g
}

// label names a node by its bean names for diagnostics.
func (g *typeGraph) label(id typeid.ID) string {
	defs := g.byType[id]
	if len(defs) == 0 {
		return id.String()
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return strings.Join(names, "|")
}

// TopologicalOrder returns the type identities of defs ordered so that every
// type comes after the types it depends on.
//
// It fails with *CycleError when the dependencies form a cycle and with
// *MissingDependencyError when a required dependency type has no definition.
// Optional dependencies on unregistered types are ignored.
func TopologicalOrder(defs []Definition) ([]typeid.ID, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	g := newTypeGraph(defs)
	colors := make(map[typeid.ID]int, len(g.types))
	order := make([]typeid.ID, 0, len(g.types))
	var stack []typeid.ID

	var visit func(id typeid.ID) error
	visit = func(id typeid.ID) error {
		switch colors[id] {
		case done:
			return nil
		case visiting:
			path := make([]string, 0, len(stack)+1)
			for _, s := range stack {
				path = append(path, g.label(s))
			}
			return &CycleError{Path: append(path, g.label(id))}
		}

		colors[id] = visiting
		stack = append(stack, id)

		for _, def := range g.byType[id] {
			for _, dep := range def.Dependencies {
				if _, ok := g.byType[dep.Type]; !ok {
					if dep.Required {
						return &MissingDependencyError{Bean: def.Name, Type: dep.Type, Field: dep.Field}
					}
					continue
				}
				if err := visit(dep.Type); err != nil {
					return err
				}
			}
		}

		colors[id] = done
		stack = stack[:len(stack)-1]
		order = append(order, id)
		return nil
	}

	for _, id := range g.types {
		if colors[id] == unvisited {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// DotGraph renders the dependency graph of defs in Graphviz dot format.
// Edges point from a dependency to its dependent; optional edges are dashed.
func DotGraph(defs []Definition) string {
	var b strings.Builder
	b.WriteString("digraph beans {\n  rankdir=BT;\n")

	g := newTypeGraph(defs)
	for _, def := range defs {
		fmt.Fprintf(&b, "  %q [label=%q];\n", def.Name, def.Name+"\n"+def.Type.String())
	}
	for _, def := range defs {
		for _, dep := range def.Dependencies {
			targets := g.byType[dep.Type]
			if len(targets) == 0 {
				fmt.Fprintf(&b, "  %q -> %q [style=dotted, color=red];\n", dep.Type.String(), def.Name)
				continue
			}
			style := ""
			if !dep.Required {
				style = " [style=dashed]"
			}
			for _, target := range targets {
				fmt.Fprintf(&b, "  %q -> %q%s;\n", target.Name, def.Name, style)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}
