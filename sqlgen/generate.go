package sqlgen

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/relation"
)

// generator carries the per-compilation state the CTE walk accumulates:
// the shared expression compiler, the CTE-name counter seeded at 1
// (§4.H), and the ordered CTE list built up as the walk proceeds.
type generator struct {
	dialect Dialect
	table   string
	expr    *exprCompiler
	names   nameCounter
	ctes    []CTE
}

// Generate lowers a fully translated Relation Tree into the ordered CTE
// list, the declared output column list, and the assembled SQL text
// (§4.F–§4.H). table names the source relation the Base step reads from
// (e.g. "resources"); its rows are expected to expose an "id" key column
// and a "resource" JSON column holding the FHIR resource.
func Generate(root *relation.Project, table string, d Dialect) ([]CTE, []OutputColumn, string, error) {
	g := &generator{dialect: d, table: table, expr: newExprCompiler(d)}
	finalName, err := g.lowerProject(root)
	if err != nil {
		return nil, nil, "", err
	}
	stmt := assemble(g.ctes, finalName, root.Cols)

	out := make([]OutputColumn, len(root.Cols))
	for i, c := range root.Cols {
		out[i] = OutputColumn{Name: c.Name, Nullable: true, InferredTypeHint: c.DeclaredType}
	}
	return g.ctes, out, stmt, nil
}

func (g *generator) add(colSig []string, body string, dependsOn ...string) string {
	name := g.names.next()
	g.ctes = append(g.ctes, CTE{Name: name, ColumnSig: colSig, SQLBody: body, DependsOn: dependsOn})
	return name
}

// lowerFocus lowers Base/Filter/ForEach, the three Relation Tree cases
// that stream (row_id, r, _ord) triples: row_id identifies the source
// resource, r is the current navigation focus (JSON), and _ord is the
// ordinal a enclosing ForEach assigned (NULL outside one). Each case is
// exactly one CTE, per the one-CTE-per-Relation-Tree-node granularity
// this generator uses in place of one CTE per FHIRPath sub-expression:
// path navigation within a node's own column/where/forEach expression
// is compiled inline by exprCompiler rather than further decomposed.
func (g *generator) lowerFocus(n relation.Node) (string, error) {
	switch x := n.(type) {
	case *relation.Base:
		body := fmt.Sprintf(
			"SELECT id AS row_id, resource AS r, NULL AS _ord FROM %s WHERE %s = %s",
			g.table,
			g.dialect.Extract("resource", []string{"resourceType"}),
			sqlQuote(x.ResourceType),
		)
		return g.add([]string{"row_id", "r", "_ord"}, body), nil

	case *relation.Filter:
		childName, err := g.lowerFocus(x.Child)
		if err != nil {
			return "", err
		}
		conds := make([]string, 0, len(x.Where))
		for _, w := range x.Where {
			c, err := g.expr.compileScalar(w, "r")
			if err != nil {
				return "", err
			}
			conds = append(conds, g.dialect.CastToBoolean(c))
		}
		body := fmt.Sprintf("SELECT row_id, r, _ord FROM %s WHERE %s", childName, strings.Join(conds, " AND "))
		return g.add([]string{"row_id", "r", "_ord"}, body, childName), nil

	case *relation.ForEach:
		childName, err := g.lowerFocus(x.Child)
		if err != nil {
			return "", err
		}
		coll, err := g.expr.compileJSON(x.Path, "r")
		if err != nil {
			return "", err
		}
		unnest := g.dialect.UnnestArray(coll, "_v", "_ord2")
		var body string
		if x.KeepNullRows {
			body = fmt.Sprintf(
				"SELECT row_id, _v AS r, _ord2 AS _ord FROM %s LEFT JOIN %s ON TRUE",
				childName, unnest,
			)
		} else {
			body = fmt.Sprintf(
				"SELECT row_id, _v AS r, _ord2 AS _ord FROM %s, %s",
				childName, unnest,
			)
		}
		return g.add([]string{"row_id", "r", "_ord"}, body, childName), nil

	default:
		return "", compileerr.NewGeneration("unsupported relation node in focus position: %T", n)
	}
}

// lowerProject lowers a Project into the CTE computing its declared
// output columns. A Project whose child is a Union is the unionAll
// case (§4.E): the union's branches are themselves fully projected, so
// the Project is a pure passthrough of the union's already-named rows
// rather than a further column computation. Such a Project must declare
// exactly the union's columns; columns declared alongside or after the
// unionAll have no JSON focus to read from and are rejected.
func (g *generator) lowerProject(p *relation.Project) (string, error) {
	if u, ok := p.Child.(*relation.Union); ok {
		if !slices.Equal(relation.ColumnNames(p), relation.ColumnNames(u)) {
			return "", compileerr.NewGeneration("columns declared alongside a unionAll are not supported")
		}
		return g.lowerUnion(u)
	}
	focusName, err := g.lowerFocus(p.Child)
	if err != nil {
		return "", err
	}
	return g.lowerColumns(focusName, p.Cols)
}

// lowerColumns builds the final SELECT for a focus stream's declared
// columns (§4.F Project rule): a collection column aggregates the
// path's values back into a JSON array; a scalar column extracts the
// single value.
func (g *generator) lowerColumns(focusName string, cols []relation.Column) (string, error) {
	selectList := []string{"row_id"}
	colSig := []string{"row_id"}
	for _, c := range cols {
		var expr string
		var err error
		if c.Collection {
			expr, err = g.compileCollectionColumn(c)
		} else {
			expr, err = g.expr.compileScalar(c.Path, "r")
		}
		if err != nil {
			return "", err
		}
		selectList = append(selectList, fmt.Sprintf("%s AS %s", expr, quoteIdent(c.Name)))
		colSig = append(colSig, c.Name)
	}
	body := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectList, ", "), focusName)
	return g.add(colSig, body, focusName), nil
}

func (g *generator) compileCollectionColumn(c relation.Column) (string, error) {
	coll, err := g.expr.compileJSON(c.Path, "r")
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord3")
	return fmt.Sprintf("(SELECT %s FROM %s)", g.dialect.ArrayAggJSON("_v"), unnest), nil
}

// lowerUnion lowers a unionAll group (§4.E step 3, §4.F Union rule):
// each branch is its own fully projected sub-chain, concatenated with
// UNION ALL. Schema is taken from the first branch, matching the
// column-compatibility invariant the validator already enforced.
func (g *generator) lowerUnion(u *relation.Union) (string, error) {
	if len(u.Children) == 0 {
		return "", compileerr.NewGeneration("unionAll requires at least one branch")
	}
	branchNames := make([]string, 0, len(u.Children))
	var colSig []string
	for i, child := range u.Children {
		proj, ok := child.(*relation.Project)
		if !ok {
			return "", compileerr.NewGeneration("unionAll branch must be a fully projected relation")
		}
		name, err := g.lowerProject(proj)
		if err != nil {
			return "", err
		}
		branchNames = append(branchNames, name)
		if i == 0 {
			colSig = append([]string{"row_id"}, relation.ColumnNames(proj)...)
		}
	}
	parts := make([]string, len(branchNames))
	for i, n := range branchNames {
		parts[i] = fmt.Sprintf("SELECT * FROM %s", n)
	}
	return g.add(colSig, strings.Join(parts, " UNION ALL "), branchNames...), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// assemble emits the final `WITH t1 AS (...), ..., tN AS (...) SELECT
// cols FROM tN` statement (§4.H): CTEs in dependency order, each name
// defined exactly once, output columns named from cols and read off the
// final CTE.
func assemble(ctes []CTE, finalName string, cols []relation.Column) string {
	var sb strings.Builder
	sb.WriteString("WITH ")
	for i, c := range ctes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s AS (%s)", c.Name, c.SQLBody)
	}
	sb.WriteString(" SELECT ")
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	sb.WriteString(strings.Join(names, ", "))
	fmt.Fprintf(&sb, " FROM %s", finalName)
	return sb.String()
}
