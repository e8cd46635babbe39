// Package relation defines the Relation Tree (§3) produced by the
// ViewDefinition translator (viewdef package) and consumed by the CTE
// generator (sqlgen package). Node shapes mirror the reference corpus's
// plan/pir.Step chain: each non-leaf type embeds its child (or children)
// directly rather than going through an interface method, and every type
// exposes a Columns() projection so callers can validate the Union
// column-compatibility invariant without re-walking the whole tree.
package relation

import "github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"

// Node is satisfied by every Relation Tree case: Base, Filter, ForEach,
// Union, Project.
type Node interface {
	// Columns returns the ordered, named output columns this node's
	// rows expose. For Base it is empty (a Base row is the bare
	// resource; names only appear once a Project is applied).
	Columns() []Column
	node()
}

// Column describes one output column of a Project (or, transitively, of
// whatever sits above it): its declared name, the FHIRPath expression
// that computes it, whether it is collection-valued, and an optional
// declared FHIR primitive type used only for the output column-type hint
// (§6).
type Column struct {
	Name         string
	Path         ast.Node
	Collection   bool
	DeclaredType string // "" if not declared
}

// Base is the root of every Relation Tree: one row per resource of the
// named type.
type Base struct {
	ResourceType string
}

func (*Base) Columns() []Column { return nil }
func (*Base) node()             {}

// Filter retains only the rows of Child for which every one of Where
// evaluates to boolean true (§4.F). Each Where AST must statically
// resolve to boolean cardinality 1 (enforced by the validator before
// translation produces this node).
type Filter struct {
	Child Node
	Where []ast.Node
}

func (f *Filter) Columns() []Column { return f.Child.Columns() }
func (*Filter) node()               {}

// ForEach unnests a collection-valued Path expression evaluated against
// Child, producing one output row per element (and, if KeepNullRows is
// set, one null-valued row for resources where Path yields the empty
// collection — the forEachOrNull form, §3).
type ForEach struct {
	Child        Node
	Path         ast.Node
	KeepNullRows bool
}

func (f *ForEach) Columns() []Column { return f.Child.Columns() }
func (*ForEach) node()               {}

// Union vertically concatenates Children (the unionAll select-element
// form, §4.E). Children must expose identical ordered column-name
// vectors; the validator enforces this before translation emits a Union,
// so Columns() simply returns the first child's vector.
type Union struct {
	Children []Node
}

func (u *Union) Columns() []Column {
	if len(u.Children) == 0 {
		return nil
	}
	return u.Children[0].Columns()
}
func (*Union) node() {}

// Project is the outermost node of a fully translated ViewDefinition: it
// names Child's rows into the final output column list.
type Project struct {
	Child Node
	Cols  []Column
}

func (p *Project) Columns() []Column { return p.Cols }
func (*Project) node()               {}

// Walk calls visit(n) for n and, recursively, for every Relation Tree
// node reachable from it, in the same depth-first order the CTE
// generator walks the tree to assign CTE names.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	switch x := n.(type) {
	case *Base:
		visit(x)
	case *Filter:
		Walk(x.Child, visit)
		visit(x)
	case *ForEach:
		Walk(x.Child, visit)
		visit(x)
	case *Union:
		for _, c := range x.Children {
			Walk(c, visit)
		}
		visit(x)
	case *Project:
		Walk(x.Child, visit)
		visit(x)
	}
}

// ColumnNames is a convenience that projects Columns() down to just the
// ordered name list, used by the Union column-compatibility check.
func ColumnNames(n Node) []string {
	cols := n.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
