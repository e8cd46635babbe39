package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBasicSelect(t *testing.T) {
	doc := []byte(`{"resource":"Patient","select":[{"column":[{"name":"id","path":"id"}]}]}`)
	res, err := Compile(doc, Options{Dialect: "embedded"})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "WITH")
	assert.Equal(t, []string{"id"}, []string{res.Columns[0].Name})
}

func TestCompileUnknownDialectFallsBackToEmbedded(t *testing.T) {
	doc := []byte(`{"resource":"Patient","select":[{"column":[{"name":"id","path":"id"}]}]}`)
	res, err := Compile(doc, Options{Dialect: "bogus"})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "json_extract")
}

func TestCompileSurfacesValidationError(t *testing.T) {
	doc := []byte(`{}`)
	_, err := Compile(doc, Options{Dialect: "server"})
	require.Error(t, err)
}

func TestCompileUsesDefaultTable(t *testing.T) {
	doc := []byte(`{"resource":"Patient","select":[{"column":[{"name":"id","path":"id"}]}]}`)
	res, err := Compile(doc, Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, DefaultTable)
}
