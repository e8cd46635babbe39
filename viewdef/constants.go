package viewdef

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/token"
)

// buildConstantsEnv turns the document's `constant` array into the
// pre-parse environment the translator supplies for `%name` lookups
// (§4.E, §9): each constant becomes an ast.Literal keyed by its
// `%name` form, coerced from the document's loosely-typed JSON value
// with spf13/cast the way the rest of the translator tolerates
// ViewDefinition authors writing numbers as strings or vice versa.
func buildConstantsEnv(cs []Constant) map[string]ast.Node {
	env := make(map[string]ast.Node, len(cs))
	for _, c := range cs {
		if c.Name == "" {
			continue
		}
		env["%"+c.Name] = constantLiteral(c)
	}
	return env
}

func constantLiteral(c Constant) ast.Node {
	suffix := strings.TrimPrefix(c.ValueField, "value")
	loc := token.Location{}
	switch suffix {
	case "Boolean":
		b, _ := cast.ToBoolE(c.Value)
		v := "false"
		if b {
			v = "true"
		}
		return ast.NewLiteral(loc, ast.BooleanType, v, "")
	case "Integer", "UnsignedInt", "PositiveInt":
		i, _ := cast.ToInt64E(c.Value)
		return ast.NewLiteral(loc, ast.IntegerType, fmt.Sprintf("%d", i), "")
	case "Decimal":
		f, _ := cast.ToFloat64E(c.Value)
		return ast.NewLiteral(loc, ast.DecimalType, strconv.FormatFloat(f, 'f', -1, 64), "")
	case "Date":
		s, _ := cast.ToStringE(c.Value)
		return ast.NewLiteral(loc, ast.DateType, s, "")
	case "DateTime", "Instant":
		s, _ := cast.ToStringE(c.Value)
		return ast.NewLiteral(loc, ast.DateTimeType, s, "")
	case "Time":
		s, _ := cast.ToStringE(c.Value)
		return ast.NewLiteral(loc, ast.TimeType, s, "")
	default: // String, Code, Uri, Url, Canonical, Id, Markdown, Oid, Uuid, Base64Binary
		s, _ := cast.ToStringE(c.Value)
		return ast.NewLiteral(loc, ast.StringType, s, "")
	}
}

// knownPrimitiveTypes is the set of FHIR primitive type names a column's
// declared `type` field is checked against (§4.E, §7 unknown_type).
var knownPrimitiveTypes = map[string]bool{
	"boolean": true, "integer": true, "decimal": true, "string": true,
	"uri": true, "url": true, "canonical": true, "base64Binary": true,
	"instant": true, "date": true, "dateTime": true, "time": true,
	"code": true, "oid": true, "id": true, "markdown": true,
	"unsignedInt": true, "positiveInt": true, "uuid": true,
}
