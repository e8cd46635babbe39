package viewdef

import (
	"strings"

	"github.com/joelmontavon/fhir4ds-sub001/fhirmodel"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
)

// scalarCollapsingInvocations are FHIRPath functions whose result is
// always scalar (cardinality 1 or empty) regardless of the receiver's
// cardinality.
var scalarCollapsingInvocations = map[string]bool{
	"first": true, "last": true, "single": true, "count": true,
	"exists": true, "empty": true, "join": true, "sum": true, "avg": true,
	"min": true, "max": true, "getResourceKey": true, "getReferenceKey": true,
	"lowBoundary": true, "highBoundary": true, "toString": true,
	"toInteger": true, "toDecimal": true, "toBoolean": true, "not": true,
	"allTrue": true, "anyTrue": true, "allFalse": true, "anyFalse": true,
	"all": true, "subsetOf": true, "supersetOf": true, "iif": true,
}

// collectionProducingInvocations always yield a (possibly larger)
// collection regardless of the receiver's cardinality.
var collectionProducingInvocations = map[string]bool{
	"tail": true, "skip": true, "take": true, "union": true, "combine": true,
	"distinct": true,
}

// passthroughInvocations preserve the receiver's cardinality: they
// filter, re-type, or otherwise transform elements one-for-one without
// changing the collection/scalar shape.
var passthroughInvocations = map[string]bool{
	"where": true, "extension": true, "select": true, "repeat": true, "ofType": true,
}

// InferCardinality statically classifies n's result shape using a
// best-effort structural heuristic (§4.E, §9: this compiler does not
// embed a full FHIR StructureDefinition model, so cardinality is
// inferred from element-name conventions plus function-level rules
// rather than resource-specific schemas).
func InferCardinality(n ast.Node) ast.Cardinality {
	switch x := n.(type) {
	case *ast.Literal:
		return ast.Scalar
	case *ast.Identifier:
		if fhirmodel.IsCollectionField(strings.TrimPrefix(x.Name, "%")) {
			return ast.Collection
		}
		return ast.Scalar
	case *ast.MemberAccess:
		// Cardinality is intrinsic to the terminal field name, not
		// inherited from the receiver: `name.family` is scalar even
		// though `name` is a collection, because `family` itself is
		// single-valued within each HumanName element. Full
		// flattening-aware inference would need a real
		// StructureDefinition model; this per-field heuristic is the
		// documented scope limit (§9).
		if fhirmodel.IsCollectionField(x.Name) {
			return ast.Collection
		}
		return ast.Scalar
	case *ast.Indexer:
		return ast.Scalar
	case *ast.Unary:
		return InferCardinality(x.Operand)
	case *ast.Binary:
		if x.Op == ast.OpUnion {
			return ast.Collection
		}
		return ast.Scalar
	case *ast.TypeOp:
		switch x.Op {
		case ast.OpOfType:
			return InferCardinality(x.Expr)
		default: // is, as
			return ast.Scalar
		}
	case *ast.Invocation:
		switch {
		case scalarCollapsingInvocations[x.Name]:
			return ast.Scalar
		case collectionProducingInvocations[x.Name]:
			return ast.Collection
		case passthroughInvocations[x.Name]:
			if x.Expr != nil {
				return InferCardinality(x.Expr)
			}
			return ast.Collection
		default:
			if x.Expr != nil {
				return InferCardinality(x.Expr)
			}
			return ast.Scalar
		}
	default:
		return ast.Unknown
	}
}

// IsBoolean heuristically reports whether n statically resolves to a
// single boolean value, used to validate `where` path elements (§4.E,
// §8 scenario iv).
func IsBoolean(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.Literal:
		return x.DataType == ast.BooleanType
	case *ast.Unary:
		return x.Op == ast.UnaryNot
	case *ast.Binary:
		switch x.Op {
		case ast.OpEq, ast.OpNeq, ast.OpEquiv, ast.OpNotEquiv,
			ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe,
			ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpImplies,
			ast.OpIn, ast.OpContains:
			return true
		}
		return false
	case *ast.TypeOp:
		return x.Op == ast.OpIs
	case *ast.Invocation:
		switch x.Name {
		case "exists", "empty", "all", "allTrue", "anyTrue", "allFalse",
			"anyFalse", "subsetOf", "supersetOf", "toBoolean", "not", "iif":
			return true
		}
		return false
	case *ast.Identifier:
		return fhirmodel.IsBooleanField(x.Name)
	case *ast.MemberAccess:
		return fhirmodel.IsBooleanField(x.Name)
	default:
		return false
	}
}
