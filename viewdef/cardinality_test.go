package viewdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/parser"
)

func parseOrFail(t *testing.T, src string) ast.Node {
	t.Helper()
	n, err := parser.Parse(src)
	require.NoError(t, err)
	return n
}

func TestInferCardinalityCollectionRoot(t *testing.T) {
	assert.Equal(t, ast.Collection, InferCardinality(parseOrFail(t, "name")))
}

func TestInferCardinalityTerminalFieldIsScalar(t *testing.T) {
	assert.Equal(t, ast.Scalar, InferCardinality(parseOrFail(t, "name.family")))
}

func TestInferCardinalityFirstCollapsesToScalar(t *testing.T) {
	assert.Equal(t, ast.Scalar, InferCardinality(parseOrFail(t, "telecom.first()")))
}

func TestInferCardinalityWherePreservesReceiver(t *testing.T) {
	assert.Equal(t, ast.Collection, InferCardinality(parseOrFail(t, "telecom.where(system = 'phone')")))
}

func TestIsBooleanComparison(t *testing.T) {
	assert.True(t, IsBoolean(parseOrFail(t, "system = 'phone'")))
}

func TestIsBooleanExists(t *testing.T) {
	assert.True(t, IsBoolean(parseOrFail(t, "name.exists()")))
}

func TestIsBooleanFieldAccessIsNotBoolean(t *testing.T) {
	assert.False(t, IsBoolean(parseOrFail(t, "name.family")))
}
