package viewdef

import (
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
	"github.com/joelmontavon/fhir4ds-sub001/relation"
)

// Translate validates doc and lowers it into a relation.Project ready
// for the CTE generator (§4.E step 4). It returns the same
// compileerr.ValidationError Validate would on a structurally invalid
// document.
func Translate(doc *Document) (*relation.Project, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	env := buildConstantsEnv(doc.Constant)

	var root relation.Node = &relation.Base{ResourceType: doc.Resource}
	if len(doc.Where) > 0 {
		wheres := make([]ast.Node, 0, len(doc.Where))
		for _, w := range doc.Where {
			n, err := parseAndSubstitute(w.Path, env)
			if err != nil {
				return nil, err
			}
			wheres = append(wheres, n)
		}
		root = &relation.Filter{Child: root, Where: wheres}
	}

	node, cols, err := buildGroup(doc.Select, env, root)
	if err != nil {
		return nil, err
	}
	return &relation.Project{Child: node, Cols: cols}, nil
}

// buildGroup lowers one slice of sibling select elements atop child,
// per the translation rule of §4.E step 3: a forEach/forEachOrNull
// wraps the incoming child, nested selects recurse and their column
// vectors concatenate, and unionAll branches become a relation.Union
// whose schema is the first branch's.
//
// Multiple sibling elements at the same level (including the document's
// top-level `select` array) are threaded sequentially: each sibling's
// subtree becomes the child for the next sibling, and all siblings'
// columns concatenate into the group's output. This models the common
// case — additional column blocks layered onto one shared relation —
// without introducing a join node outside the Relation Tree's five
// cases (§3); a sibling that itself declares forEach changes the row
// shape for every sibling that follows it in document order.
func buildGroup(elements []SelectElement, env map[string]ast.Node, child relation.Node) (relation.Node, []relation.Column, error) {
	var cols []relation.Column
	cur := child
	for _, se := range elements {
		sub := cur

		iterPath := se.ForEach
		keepNull := false
		if iterPath == "" && se.ForEachOrNull != "" {
			iterPath = se.ForEachOrNull
			keepNull = true
		}
		if iterPath != "" {
			pathAST, err := parseAndSubstitute(iterPath, env)
			if err != nil {
				return nil, nil, err
			}
			sub = &relation.ForEach{Child: sub, Path: pathAST, KeepNullRows: keepNull}
		}

		for _, c := range se.Column {
			pathAST, err := parseAndSubstitute(c.Path, env)
			if err != nil {
				return nil, nil, err
			}
			cols = append(cols, relation.Column{
				Name:         c.Name,
				Path:         pathAST,
				Collection:   c.Collection,
				DeclaredType: c.Type,
			})
		}

		if len(se.Select) > 0 {
			nestedNode, nestedCols, err := buildGroup(se.Select, env, sub)
			if err != nil {
				return nil, nil, err
			}
			sub = nestedNode
			cols = append(cols, nestedCols...)
		}

		if len(se.UnionAll) > 0 {
			children := make([]relation.Node, 0, len(se.UnionAll))
			var unionCols []relation.Column
			for i, u := range se.UnionAll {
				branchNode, branchCols, err := buildGroup([]SelectElement{u}, env, sub)
				if err != nil {
					return nil, nil, err
				}
				children = append(children, &relation.Project{Child: branchNode, Cols: branchCols})
				if i == 0 {
					unionCols = branchCols
				}
			}
			sub = &relation.Union{Children: children}
			cols = append(cols, unionCols...)
		}

		cur = sub
	}
	return cur, cols, nil
}
