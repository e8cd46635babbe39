package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
)

// embeddedDialect targets an embedded analytics engine with SQLite-style
// native JSON functions (`json_extract`, `json_each`, `json_group_array`)
// — the dialect an in-process/analytics execution mode would use.
type embeddedDialect struct{}

// Embedded is the embedded analytics dialect (§4.G).
var Embedded Dialect = embeddedDialect{}

func (embeddedDialect) Name() string { return "embedded" }

// sqlitePath renders path segments as a SQLite json_extract path
// expression: `$.name[0].family`. A segment that parses as a
// non-negative integer is treated as an array index; anything else is
// an object key.
func sqlitePath(path []string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, seg := range path {
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 {
			fmt.Fprintf(&sb, "[%d]", n)
			continue
		}
		sb.WriteByte('.')
		sb.WriteString(seg)
	}
	return sb.String()
}

func (embeddedDialect) Extract(jsonExpr string, path []string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", jsonExpr, sqlitePath(path))
}

func (embeddedDialect) ExtractJSON(jsonExpr string, path []string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", jsonExpr, sqlitePath(path))
}

func (embeddedDialect) UnnestArray(jsonExpr, valueCol, ordinalCol string) string {
	return fmt.Sprintf("json_each(%s) AS _je(%s, %s)", jsonExpr, ordinalCol, valueCol)
}

func (embeddedDialect) ArrayAggJSON(valueExpr string) string {
	return fmt.Sprintf("json_group_array(%s)", valueExpr)
}

func (embeddedDialect) TypeTest(jsonExpr, kind string) string {
	return fmt.Sprintf("json_type(%s) = '%s'", jsonExpr, kind)
}

func (embeddedDialect) CastToNumber(valueExpr string) string {
	return fmt.Sprintf("CAST(%s AS REAL)", valueExpr)
}

func (embeddedDialect) CastToBoolean(valueExpr string) string {
	return fmt.Sprintf("CAST(%s AS BOOLEAN)", valueExpr)
}

func (embeddedDialect) StringAgg(valueExpr, orderByExpr, sep string) string {
	return fmt.Sprintf("group_concat(%s, %s ORDER BY %s)", valueExpr, sep, orderByExpr)
}
