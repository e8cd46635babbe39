package viewdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentEmptyObjectIsEmpty(t *testing.T) {
	d, err := ParseDocument([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, d.isEmpty())
}

func TestParseDocumentNonObjectIsEmpty(t *testing.T) {
	d, err := ParseDocument([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.True(t, d.isEmpty())
}

func TestParseDocumentPopulatesFields(t *testing.T) {
	d, err := ParseDocument([]byte(`{
		"resource":"Patient",
		"constant":[{"name":"sys","valueString":"phone"}],
		"select":[{"column":[{"name":"id","path":"id"}]}]
	}`))
	require.NoError(t, err)
	assert.False(t, d.isEmpty())
	assert.Equal(t, "Patient", d.Resource)
	require.Len(t, d.Constant, 1)
	assert.Equal(t, "sys", d.Constant[0].Name)
	assert.Equal(t, "valueString", d.Constant[0].ValueField)
	assert.Equal(t, "phone", d.Constant[0].Value)
}

func TestConstantUnmarshalNumericAndBoolean(t *testing.T) {
	d, err := ParseDocument([]byte(`{
		"resource":"Patient",
		"constant":[
			{"name":"n","valueInteger":5},
			{"name":"b","valueBoolean":true}
		],
		"select":[{"column":[{"name":"id","path":"id"}]}]
	}`))
	require.NoError(t, err)
	require.Len(t, d.Constant, 2)
}
