package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joelmontavon/fhir4ds-sub001/choicetype"
	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
)

// exprCompiler lowers a single FHIRPath AST (already constant-
// substituted by the viewdef translator) into a SQL value expression
// against a dialect, implementing the operator semantics of §4.F. It
// is stateless beyond the dialect reference; one instance is shared by
// every CTE body the generator builds.
type exprCompiler struct {
	dialect Dialect
}

func newExprCompiler(d Dialect) *exprCompiler { return &exprCompiler{dialect: d} }

// collectPath walks a chain of MemberAccess nodes back to its
// non-path base, returning the ordered field-name segments and the
// node the chain bottoms out at. `a.b.c` yields (["b","c"], Identifier(a)).
func collectPath(n ast.Node) ([]string, ast.Node) {
	ma, ok := n.(*ast.MemberAccess)
	if !ok {
		return nil, n
	}
	segs, base := collectPath(ma.Expr)
	return append(segs, ma.Name), base
}

// compileJSON compiles n into a JSON-typed SQL expression, suitable for
// further navigation or final JSON-array aggregation. root is the SQL
// expression for the enclosing row's current focus value.
func (g *exprCompiler) compileJSON(n ast.Node, root string) (string, error) {
	segs, base := collectPath(n)
	baseExpr, err := g.compileBase(base, root, false)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return baseExpr, nil
	}
	return g.dialect.ExtractJSON(baseExpr, segs), nil
}

// compileScalar is compileJSON but extracts the terminal segment as a
// scalar leaf value rather than a JSON-typed one. A single-segment path
// (e.g. a bare `id`) has no MemberAccess chain for collectPath to peel
// off, so the base itself must be compiled in scalar form — otherwise a
// one-segment scalar column would silently return the JSON-typed
// extraction instead (a dialect-visible difference: the embedded
// dialect's json_extract already unwraps scalar leaves, but the server
// dialect's `#>` returns jsonb, not text).
func (g *exprCompiler) compileScalar(n ast.Node, root string) (string, error) {
	segs, base := collectPath(n)
	baseExpr, err := g.compileBase(base, root, len(segs) == 0)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return baseExpr, nil
	}
	return g.dialect.Extract(baseExpr, segs), nil
}

// compileBase compiles a path's non-MemberAccess root node. scalar
// indicates whether the result is used directly as a leaf value (true)
// or as a JSON-typed base for further path navigation (false); it only
// affects the Identifier and Indexer cases, the two node kinds that can
// themselves be a path's entire, single-segment body.
func (g *exprCompiler) compileBase(n ast.Node, root string, scalar bool) (string, error) {
	switch x := n.(type) {
	case *ast.Literal:
		return g.compileLiteral(x), nil
	case *ast.Identifier:
		switch x.Name {
		case "$this":
			return root, nil
		case "$index":
			return "_ord", nil
		case "$total":
			return "", compileerr.NewGeneration("$total is not supported outside an aggregate context")
		}
		if strings.HasPrefix(x.Name, "%") {
			return "", compileerr.NewGeneration("unresolved constant reference %s", x.Name)
		}
		if scalar {
			return g.dialect.Extract(root, []string{x.Name}), nil
		}
		return g.dialect.ExtractJSON(root, []string{x.Name}), nil
	case *ast.Indexer:
		return g.compileIndexer(x, root, scalar)
	case *ast.Unary:
		return g.compileUnary(x, root)
	case *ast.Binary:
		return g.compileBinary(x, root)
	case *ast.TypeOp:
		return g.compileTypeOp(x, root)
	case *ast.Invocation:
		return g.compileInvocation(x, root)
	default:
		return "", compileerr.NewGeneration("unsupported AST node in expression compiler")
	}
}

func (g *exprCompiler) compileLiteral(l *ast.Literal) string {
	switch l.DataType {
	case ast.StringType, ast.DateType, ast.DateTimeType, ast.TimeType:
		return sqlQuote(l.Value)
	case ast.BooleanType:
		return strings.ToUpper(l.Value)
	default:
		return l.Value
	}
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (g *exprCompiler) compileIndexer(ix *ast.Indexer, root string, scalar bool) (string, error) {
	base, err := g.compileJSON(ix.Expr, root)
	if err != nil {
		return "", err
	}
	idxLit, ok := ix.Index.(*ast.Literal)
	if !ok || idxLit.DataType != ast.IntegerType {
		return "", compileerr.NewGeneration("indexer expression must be an integer literal")
	}
	if scalar {
		return g.dialect.Extract(base, []string{idxLit.Value}), nil
	}
	return g.dialect.ExtractJSON(base, []string{idxLit.Value}), nil
}

func (g *exprCompiler) compileUnary(u *ast.Unary, root string) (string, error) {
	operand, err := g.compileScalar(u.Operand, root)
	if err != nil {
		return "", err
	}
	switch u.Op {
	case ast.UnaryPlus:
		return operand, nil
	case ast.UnaryMinus:
		return fmt.Sprintf("(-%s)", operand), nil
	case ast.UnaryNot:
		return fmt.Sprintf("(NOT %s)", g.dialect.CastToBoolean(operand)), nil
	default:
		return "", compileerr.NewGeneration("unsupported unary operator")
	}
}

func (g *exprCompiler) compileBinary(b *ast.Binary, root string) (string, error) {
	left, err := g.compileScalar(b.Left, root)
	if err != nil {
		return "", err
	}
	right, err := g.compileScalar(b.Right, root)
	if err != nil {
		return "", err
	}
	switch b.Op {
	case ast.OpEq:
		return fmt.Sprintf("(%s = %s)", left, right), nil
	case ast.OpNeq:
		return fmt.Sprintf("(%s != %s)", left, right), nil
	case ast.OpEquiv:
		return fmt.Sprintf("(%s = %s)", left, right), nil
	case ast.OpNotEquiv:
		return fmt.Sprintf("(%s != %s)", left, right), nil
	case ast.OpLt:
		return fmt.Sprintf("(%s < %s)", left, right), nil
	case ast.OpLe:
		return fmt.Sprintf("(%s <= %s)", left, right), nil
	case ast.OpGt:
		return fmt.Sprintf("(%s > %s)", left, right), nil
	case ast.OpGe:
		return fmt.Sprintf("(%s >= %s)", left, right), nil
	case ast.OpAnd:
		return fmt.Sprintf("(%s AND %s)", g.dialect.CastToBoolean(left), g.dialect.CastToBoolean(right)), nil
	case ast.OpOr:
		return fmt.Sprintf("(%s OR %s)", g.dialect.CastToBoolean(left), g.dialect.CastToBoolean(right)), nil
	case ast.OpXor:
		return fmt.Sprintf("(%s IS DISTINCT FROM %s)", g.dialect.CastToBoolean(left), g.dialect.CastToBoolean(right)), nil
	case ast.OpImplies:
		return fmt.Sprintf("(NOT %s OR %s)", g.dialect.CastToBoolean(left), g.dialect.CastToBoolean(right)), nil
	case ast.OpAdd:
		return fmt.Sprintf("(%s + %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpSub:
		return fmt.Sprintf("(%s - %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpMul:
		return fmt.Sprintf("(%s * %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpDiv:
		return fmt.Sprintf("(%s / %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpIntDiv:
		return fmt.Sprintf("(%s / %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpMod:
		return fmt.Sprintf("(%s %% %s)", g.dialect.CastToNumber(left), g.dialect.CastToNumber(right)), nil
	case ast.OpConcat:
		return fmt.Sprintf("(%s || %s)", left, right), nil
	default:
		return "", compileerr.NewGeneration("operator %s is not supported by this dialect", b.Op)
	}
}

func (g *exprCompiler) compileTypeOp(t *ast.TypeOp, root string) (string, error) {
	mapping, ok, err := choicetype.FieldFor(choiceBase(t.Expr), t.TypeName)
	if err != nil {
		return "", err
	}
	if !ok {
		// Not a registered polymorphic choice; fall back to a direct
		// JSON type test against the plain field.
		expr, cerr := g.compileJSON(t.Expr, root)
		if cerr != nil {
			return "", cerr
		}
		switch t.Op {
		case ast.OpIs:
			return g.dialect.TypeTest(expr, jsonKindFor(t.TypeName)), nil
		default:
			return expr, nil
		}
	}
	parentExpr, err := g.choiceParent(t.Expr, root)
	if err != nil {
		return "", err
	}
	resolved := g.dialect.ExtractJSON(parentExpr, []string{mapping})
	switch t.Op {
	case ast.OpIs:
		return fmt.Sprintf("(%s IS NOT NULL)", resolved), nil
	default: // as, ofType
		return resolved, nil
	}
}

// choiceBase recovers the polymorphic base name (e.g. "value") from an
// expression like `value` that ofType/is/as is applied to.
func choiceBase(n ast.Node) string {
	switch x := n.(type) {
	case *ast.Identifier:
		return x.Name
	case *ast.MemberAccess:
		return x.Name
	default:
		return ""
	}
}

// choiceParent compiles the JSON object expression that contains n's
// polymorphic field: for `a.value` that is `a`; for a bare `value` at
// the start of a path, it is the enclosing row's own focus (root).
func (g *exprCompiler) choiceParent(n ast.Node, root string) (string, error) {
	if ma, ok := n.(*ast.MemberAccess); ok {
		return g.compileJSON(ma.Expr, root)
	}
	return root, nil
}

func jsonKindFor(fhirType string) string {
	switch fhirType {
	case "string", "code", "uri", "url", "canonical", "id", "markdown", "date", "dateTime", "time", "instant", "base64Binary", "oid", "uuid":
		return "string"
	case "integer", "decimal", "unsignedInt", "positiveInt":
		return "number"
	case "boolean":
		return "boolean"
	default:
		return "object"
	}
}

func (g *exprCompiler) compileInvocation(inv *ast.Invocation, root string) (string, error) {
	switch inv.Name {
	case "first":
		return g.compileOrdinalPick(inv, root, "MIN")
	case "last":
		return g.compileOrdinalPick(inv, root, "MAX")
	case "where":
		return g.compileWhere(inv, root)
	case "extension":
		return g.compileExtension(inv, root)
	case "exists":
		return g.compileExists(inv, root, false)
	case "empty":
		return g.compileExists(inv, root, true)
	case "count":
		return g.compileAggregate(inv, root, "COUNT")
	case "sum":
		return g.compileAggregate(inv, root, "SUM")
	case "avg":
		return g.compileAggregate(inv, root, "AVG")
	case "min":
		return g.compileAggregate(inv, root, "MIN")
	case "max":
		return g.compileAggregate(inv, root, "MAX")
	case "join":
		return g.compileJoin(inv, root)
	case "tail":
		return g.compileSlice(inv, root, "_ord > 0")
	case "skip":
		n, err := g.intArg(inv, 0)
		if err != nil {
			return "", err
		}
		return g.compileSlice(inv, root, fmt.Sprintf("_ord >= %d", n))
	case "take":
		n, err := g.intArg(inv, 0)
		if err != nil {
			return "", err
		}
		return g.compileSlice(inv, root, fmt.Sprintf("_ord < %d", n))
	case "lowBoundary":
		return g.compileBoundary(inv, root, true)
	case "highBoundary":
		return g.compileBoundary(inv, root, false)
	case "getResourceKey":
		return g.dialect.ExtractJSON(root, []string{"id"}), nil
	case "getReferenceKey":
		return g.compileGetReferenceKey(inv, root)
	case "not":
		recv, err := g.compileScalar(inv.Expr, root)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(NOT %s)", g.dialect.CastToBoolean(recv)), nil
	default:
		return "", compileerr.NewGeneration("function %q is not supported", inv.Name)
	}
}

// compileOrdinalPick implements first()/last(): a correlated scalar
// subquery picking the element at the minimum/maximum ordinal of the
// receiver's unnested collection.
func (g *exprCompiler) compileOrdinalPick(inv *ast.Invocation, root string, agg string) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("%s() requires a receiver", inv.Name)
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	return fmt.Sprintf(
		"(SELECT _v FROM %s ORDER BY _ord %s LIMIT 1)",
		unnest, orderDirection(agg),
	), nil
}

func orderDirection(agg string) string {
	if agg == "MAX" {
		return "DESC"
	}
	return "ASC"
}

// compileWhere implements where(cond): a JSON array built from the
// elements of the receiver's collection whose cond evaluates true, with
// $this bound to each element in turn.
func (g *exprCompiler) compileWhere(inv *ast.Invocation, root string) (string, error) {
	if inv.Expr == nil || len(inv.Args) != 1 {
		return "", compileerr.NewGeneration("where() requires a receiver and one predicate argument")
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	cond, err := g.compileScalar(inv.Args[0], "_v")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"(SELECT %s FROM (SELECT _v FROM %s WHERE %s) AS _w)",
		g.dialect.ArrayAggJSON("_v"), unnest, g.dialect.CastToBoolean(cond),
	), nil
}

// compileExtension implements the extension(url) shorthand: equivalent
// to extension.where(url = <url>) (§4.F).
func (g *exprCompiler) compileExtension(inv *ast.Invocation, root string) (string, error) {
	if len(inv.Args) != 1 {
		return "", compileerr.NewGeneration("extension() requires exactly one url argument")
	}
	recvExpr := root
	if inv.Expr != nil {
		recvExpr2, err := g.compileJSON(inv.Expr, root)
		if err != nil {
			return "", err
		}
		recvExpr = recvExpr2
	}
	extColl := g.dialect.ExtractJSON(recvExpr, []string{"extension"})
	unnest := g.dialect.UnnestArray(extColl, "_v", "_ord")
	urlExpr, err := g.compileScalar(inv.Args[0], root)
	if err != nil {
		return "", err
	}
	urlField := g.dialect.Extract("_v", []string{"url"})
	return fmt.Sprintf(
		"(SELECT %s FROM (SELECT _v FROM %s WHERE %s = %s) AS _ext)",
		g.dialect.ArrayAggJSON("_v"), unnest, urlField, urlExpr,
	), nil
}

func (g *exprCompiler) compileExists(inv *ast.Invocation, root string, negate bool) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("%s() requires a receiver", inv.Name)
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	cmp := ">"
	if negate {
		cmp = "="
	}
	return fmt.Sprintf("((SELECT COUNT(*) FROM %s) %s 0)", unnest, cmp), nil
}

func (g *exprCompiler) compileAggregate(inv *ast.Invocation, root string, sqlFn string) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("%s() requires a receiver", inv.Name)
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	value := "_v"
	if sqlFn != "COUNT" {
		value = g.dialect.CastToNumber("_v")
	}
	return fmt.Sprintf("(SELECT %s(%s) FROM %s)", sqlFn, value, unnest), nil
}

func (g *exprCompiler) compileJoin(inv *ast.Invocation, root string) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("join() requires a receiver")
	}
	sep := "''"
	if len(inv.Args) == 1 {
		s, err := g.compileScalar(inv.Args[0], root)
		if err != nil {
			return "", err
		}
		sep = s
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	return fmt.Sprintf("(SELECT %s FROM %s)", g.dialect.StringAgg("_v", "_ord", sep), unnest), nil
}

// compileGetReferenceKey implements getReferenceKey(typeFilter?): the
// receiver's `reference` string exactly as written, or NULL if typeFilter
// is given and the string does not start with "<typeFilter>/". The
// string is not reduced to its Type/id suffix, so an absolute reference
// URL is returned whole.
func (g *exprCompiler) compileGetReferenceKey(inv *ast.Invocation, root string) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("getReferenceKey() requires a receiver")
	}
	refExpr, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	refStr := g.dialect.Extract(refExpr, []string{"reference"})
	if len(inv.Args) == 0 {
		return refStr, nil
	}
	typeLit, ok := inv.Args[0].(*ast.Identifier)
	if !ok {
		return "", compileerr.NewGeneration("getReferenceKey() type filter must be a bare type name")
	}
	prefix := sqlQuote(typeLit.Name + "/")
	return fmt.Sprintf(
		"(CASE WHEN %s LIKE (%s || '%%') THEN %s ELSE NULL END)",
		refStr, prefix, refStr,
	), nil
}

// compileSlice implements tail()/skip(n)/take(n): an ordinal-filtered
// re-aggregation of the receiver's unnested collection, same shape as
// compileWhere but with an explicit ORDER BY _ord — slicing is
// inherently order-sensitive in a way where()'s predicate filter is
// not, so the inner subquery must preserve source order before the
// outer ArrayAggJSON re-collects it.
func (g *exprCompiler) compileSlice(inv *ast.Invocation, root string, cond string) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("%s() requires a receiver", inv.Name)
	}
	coll, err := g.compileJSON(inv.Expr, root)
	if err != nil {
		return "", err
	}
	unnest := g.dialect.UnnestArray(coll, "_v", "_ord")
	return fmt.Sprintf(
		"(SELECT %s FROM (SELECT _v FROM %s WHERE %s ORDER BY _ord) AS _s)",
		g.dialect.ArrayAggJSON("_v"), unnest, cond,
	), nil
}

// intArg reads and parses a required integer-literal argument, as
// skip(n) and take(n) both need (§4.F).
func (g *exprCompiler) intArg(inv *ast.Invocation, i int) (int64, error) {
	if len(inv.Args) <= i {
		return 0, compileerr.NewGeneration("%s() requires an integer argument", inv.Name)
	}
	lit, ok := inv.Args[i].(*ast.Literal)
	if !ok || lit.DataType != ast.IntegerType {
		return 0, compileerr.NewGeneration("%s() argument must be an integer literal", inv.Name)
	}
	n, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return 0, compileerr.NewGeneration("%s() argument %q is not a valid integer", inv.Name, lit.Value)
	}
	return n, nil
}

// compileBoundary implements lowBoundary()/highBoundary(): FHIR date and
// dateTime values carry partial precision ("2024", "2024-03"), and the
// boundary functions expand a partial value to its inclusive min/max
// full-date reading (§4.F). length()/substr()/|| are common to both
// dialects, so the expansion needs no Dialect extension. Full-precision
// dates, times, and non-date scalars pass through unchanged; this does
// not attempt decimal-precision boundaries or true calendar leap-year
// handling (February always ends on the 28th).
func (g *exprCompiler) compileBoundary(inv *ast.Invocation, root string, low bool) (string, error) {
	if inv.Expr == nil {
		return "", compileerr.NewGeneration("%s() requires a receiver", inv.Name)
	}
	val, err := g.compileScalar(inv.Expr, root)
	if err != nil {
		return "", err
	}
	if low {
		return fmt.Sprintf(
			"(CASE WHEN length(%s) = 4 THEN (%s || '-01-01') WHEN length(%s) = 7 THEN (%s || '-01') ELSE %s END)",
			val, val, val, val, val,
		), nil
	}
	return fmt.Sprintf(
		"(CASE WHEN length(%s) = 4 THEN (%s || '-12-31') "+
			"WHEN length(%s) = 7 THEN (%s || '-' || (CASE substr(%s, 6, 2) "+
			"WHEN '02' THEN '28' WHEN '04' THEN '30' WHEN '06' THEN '30' "+
			"WHEN '09' THEN '30' WHEN '11' THEN '30' ELSE '31' END)) "+
			"ELSE %s END)",
		val, val, val, val, val, val,
	), nil
}
