package sqlgen

import (
	"fmt"
	"strings"
)

// serverDialect targets a server-grade relational engine with
// PostgreSQL-style `jsonb` operators and set-returning functions
// (`jsonb_array_elements`, `jsonb_agg`) — the dialect a networked
// executor collaborator (§6) would use against a shared database.
type serverDialect struct{}

// Server is the server dialect (§4.G).
var Server Dialect = serverDialect{}

func (serverDialect) Name() string { return "server" }

// jsonbPath renders path segments as a PostgreSQL jsonb path array
// literal: `{name,0,family}`. Numeric segments address array elements,
// object keys otherwise — jsonb's path operators treat both uniformly.
func jsonbPath(path []string) string {
	return "{" + strings.Join(path, ",") + "}"
}

func (serverDialect) Extract(jsonExpr string, path []string) string {
	return fmt.Sprintf("%s #>> '%s'", jsonExpr, jsonbPath(path))
}

func (serverDialect) ExtractJSON(jsonExpr string, path []string) string {
	return fmt.Sprintf("%s #> '%s'", jsonExpr, jsonbPath(path))
}

func (serverDialect) UnnestArray(jsonExpr, valueCol, ordinalCol string) string {
	// WITH ORDINALITY counts from 1; shift it to the 0-based position the
	// Dialect contract (and the embedded dialect's json_each key) uses.
	return fmt.Sprintf(
		"LATERAL (SELECT _e.value AS %s, _e.ordinality - 1 AS %s FROM jsonb_array_elements(%s) WITH ORDINALITY AS _e(value, ordinality)) AS _je",
		valueCol, ordinalCol, jsonExpr,
	)
}

func (serverDialect) ArrayAggJSON(valueExpr string) string {
	return fmt.Sprintf("jsonb_agg(%s)", valueExpr)
}

func (serverDialect) TypeTest(jsonExpr, kind string) string {
	return fmt.Sprintf("jsonb_typeof(%s) = '%s'", jsonExpr, kind)
}

func (serverDialect) CastToNumber(valueExpr string) string {
	return fmt.Sprintf("(%s)::numeric", valueExpr)
}

func (serverDialect) CastToBoolean(valueExpr string) string {
	return fmt.Sprintf("(%s)::boolean", valueExpr)
}

func (serverDialect) StringAgg(valueExpr, orderByExpr, sep string) string {
	return fmt.Sprintf("string_agg(%s, %s ORDER BY %s)", valueExpr, sep, orderByExpr)
}
