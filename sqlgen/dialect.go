// Package sqlgen walks a relation.Node tree and emits a dialect-specific
// SQL statement: an ordered list of CTEs followed by a final SELECT
// (§4.F–§4.H). The dialect layer (this file) is a pure syntactic
// boundary — two implementations of the same small interface, no
// business logic — mirroring how the generator itself stays dialect-
// agnostic by only ever calling through Dialect.
package sqlgen

// Dialect is the set of syntactic primitives the CTE generator needs
// from a target SQL engine's JSON support (§4.G). Every method is a
// pure string-building function; neither implementation may embed
// operator semantics (where/first/ofType/...) — that lives in
// exprgen.go, common to both dialects.
type Dialect interface {
	// Name identifies the dialect, e.g. for diagnostics and logging.
	Name() string
	// Extract returns a scalar SQL expression reading the path
	// (object-key and array-index segments, in order) out of the JSON
	// expression jsonExpr (e.g. a string/number/bool leaf value).
	Extract(jsonExpr string, path []string) string
	// ExtractJSON returns a JSON-typed SQL expression reading path out
	// of jsonExpr, preserving objects/arrays for further navigation.
	ExtractJSON(jsonExpr string, path []string) string
	// UnnestArray returns a FROM-clause table expression that unnests
	// the JSON array at jsonExpr, producing a row per element with
	// columns named valueCol (the element, JSON-typed) and
	// ordinalCol (a 0-based position).
	UnnestArray(jsonExpr, valueCol, ordinalCol string) string
	// ArrayAggJSON aggregates valueExpr (a JSON-typed column reference)
	// back into a single JSON array value.
	ArrayAggJSON(valueExpr string) string
	// TypeTest returns a boolean SQL expression testing whether the
	// JSON value at jsonExpr is of the named JSON-level kind ("object",
	// "array", "string", "number", "boolean", "null").
	TypeTest(jsonExpr, kind string) string
	// CastToNumber returns valueExpr cast to a SQL numeric type.
	CastToNumber(valueExpr string) string
	// CastToBoolean returns valueExpr cast to a SQL boolean type.
	CastToBoolean(valueExpr string) string
	// StringAgg aggregates valueExpr (a scalar string column reference)
	// with sep as the separator, in ordinal order.
	StringAgg(valueExpr, orderByExpr, sep string) string
}
