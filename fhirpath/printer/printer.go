// Package printer renders a FHIRPath AST back to canonical source text.
// It exists to support the parse-totality property test (§8.1): for
// every well-formed input, Print(Parse(x)) must re-parse to a
// structurally Equal tree.
package printer

import (
	"fmt"
	"strings"

	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
)

// Print renders n as FHIRPath source text.
func Print(n ast.Node) string {
	var sb strings.Builder
	write(&sb, n)
	return sb.String()
}

func write(sb *strings.Builder, n ast.Node) {
	switch x := n.(type) {
	case *ast.Literal:
		writeLiteral(sb, x)
	case *ast.Identifier:
		writeIdent(sb, x.Name)
	case *ast.MemberAccess:
		write(sb, x.Expr)
		sb.WriteByte('.')
		writeIdent(sb, x.Name)
	case *ast.Invocation:
		if x.Expr != nil {
			write(sb, x.Expr)
			sb.WriteByte('.')
		}
		writeIdent(sb, x.Name)
		sb.WriteByte('(')
		for i, a := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, a)
		}
		sb.WriteByte(')')
	case *ast.Indexer:
		write(sb, x.Expr)
		sb.WriteByte('[')
		write(sb, x.Index)
		sb.WriteByte(']')
	case *ast.Unary:
		sb.WriteString(x.Op.String())
		if x.Op == ast.UnaryNot {
			sb.WriteByte(' ')
		}
		write(sb, x.Operand)
	case *ast.Binary:
		sb.WriteByte('(')
		write(sb, x.Left)
		fmt.Fprintf(sb, " %s ", x.Op)
		write(sb, x.Right)
		sb.WriteByte(')')
	case *ast.TypeOp:
		switch x.Op {
		case ast.OpIs, ast.OpAs:
			write(sb, x.Expr)
			fmt.Fprintf(sb, " %s %s", x.Op, x.TypeName)
		case ast.OpOfType:
			write(sb, x.Expr)
			sb.WriteString(".ofType(")
			sb.WriteString(x.TypeName)
			sb.WriteByte(')')
		}
	default:
		sb.WriteString("<nil>")
	}
}

// writeIdent quotes an identifier with backticks if it collides with a
// reserved keyword lexeme.
func writeIdent(sb *strings.Builder, name string) {
	if strings.HasPrefix(name, "%") {
		sb.WriteString(name)
		return
	}
	if needsQuoting(name) {
		sb.WriteByte('`')
		sb.WriteString(name)
		sb.WriteByte('`')
		return
	}
	sb.WriteString(name)
}

var reservedNames = map[string]bool{
	"and": true, "or": true, "xor": true, "implies": true, "not": true,
	"is": true, "as": true, "in": true, "contains": true, "mod": true,
	"div": true, "true": true, "false": true,
}

func needsQuoting(name string) bool { return reservedNames[name] }

func writeLiteral(sb *strings.Builder, l *ast.Literal) {
	switch l.DataType {
	case ast.StringType:
		sb.WriteByte('\'')
		sb.WriteString(escapeString(l.Value))
		sb.WriteByte('\'')
	case ast.BooleanType:
		sb.WriteString(l.Value)
	case ast.DateType, ast.TimeType, ast.DateTimeType:
		// A time literal's Value already carries its leading 'T'.
		sb.WriteByte('@')
		sb.WriteString(l.Value)
	case ast.QuantityType:
		sb.WriteString(l.Value)
		sb.WriteByte(' ')
		if isBareUnit(l.Unit) {
			sb.WriteString(l.Unit)
		} else {
			sb.WriteByte('\'')
			sb.WriteString(escapeString(l.Unit))
			sb.WriteByte('\'')
		}
	default:
		sb.WriteString(l.Value)
	}
}

func isBareUnit(unit string) bool {
	switch unit {
	case "year", "years", "month", "months", "week", "weeks", "day", "days",
		"hour", "hours", "minute", "minutes", "second", "seconds",
		"millisecond", "milliseconds":
		return true
	}
	return false
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u`)
				sb.WriteString(fmt.Sprintf("%04x", r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
