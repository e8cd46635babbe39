package viewdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/relation"
)

func mustParse(t *testing.T, doc string) *Document {
	t.Helper()
	d, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	return d
}

// (a) Basic select (§8).
func TestTranslateBasicSelect(t *testing.T) {
	d := mustParse(t, `{"resource":"Patient","select":[{"column":[{"name":"id","path":"id"}]}]}`)
	proj, err := Translate(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, colNames(proj))
}

// (b) where + first().
func TestTranslateWhereAndFirst(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[
			{"name":"id","path":"id"},
			{"name":"phone","path":"telecom.where(system='phone').value.first()"}
		]}]
	}`)
	proj, err := Translate(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "phone"}, colNames(proj))
}

// (c) forEach unnest.
func TestTranslateForEach(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"forEach":"name","column":[{"name":"family","path":"family"}]}]
	}`)
	proj, err := Translate(d)
	require.NoError(t, err)
	_, ok := proj.Child.(*relation.ForEach)
	assert.True(t, ok)
	assert.Equal(t, []string{"family"}, colNames(proj))
}

// (d) forEachOrNull keeps a row — structural check: KeepNullRows is set.
func TestTranslateForEachOrNull(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"forEachOrNull":"name","column":[{"name":"family","path":"family"}]}]
	}`)
	proj, err := Translate(d)
	require.NoError(t, err)
	require.NotNil(t, proj)
	fe, ok := proj.Child.(*relation.ForEach)
	require.True(t, ok)
	assert.True(t, fe.KeepNullRows)
}

// (e) unionAll.
func TestTranslateUnionAll(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{
			"forEach":"telecom",
			"unionAll":[
				{"column":[{"name":"kind","path":"system"},{"name":"value","path":"value"}]},
				{"column":[{"name":"kind","path":"system"},{"name":"value","path":"value"}]}
			]
		}]
	}`)
	proj, err := Translate(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "value"}, colNames(proj))
}

// (f) extension shorthand parses and translates without error.
func TestTranslateExtensionShorthand(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[
			{"name":"birthsex","path":"extension('http://example.com/us-core-birthsex').value.ofType(code).first()"}
		]}]
	}`)
	_, err := Translate(d)
	require.NoError(t, err)
}

// (i) empty document.
func TestValidateEmptyDocument(t *testing.T) {
	d := mustParse(t, `{}`)
	err := Validate(d)
	require.Error(t, err)
	kind, ok := compileerr.ValidationKind(err)
	require.True(t, ok)
	assert.Equal(t, "empty", kind)
}

// (ii) missing resource.
func TestValidateMissingResource(t *testing.T) {
	d := mustParse(t, `{"select":[{"column":[{"name":"id","path":"id"}]}]}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "missing_resource", kind)
}

// (iii) forEach on a scalar path.
func TestValidateForEachScalar(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"forEach":"name.family","column":[{"name":"x","path":"x"}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "foreach_requires_collection", kind)
}

// (iv) non-boolean where path.
func TestValidateWhereNotBoolean(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"where":[{"path":"name.family"}],
		"select":[{"column":[{"name":"id","path":"id"}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "where_not_boolean", kind)
}

// (v) unionAll column mismatch.
func TestValidateUnionColumnMismatch(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{
			"unionAll":[
				{"column":[{"name":"a","path":"id"},{"name":"b","path":"id"}]},
				{"column":[{"name":"a","path":"id"},{"name":"c","path":"id"}]}
			]
		}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "union_column_mismatch", kind)
}

func TestValidateMissingSelect(t *testing.T) {
	d := mustParse(t, `{"resource":"Patient"}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "missing_select", kind)
}

func TestValidateDuplicateColumn(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[{"name":"id","path":"id"},{"name":"id","path":"id"}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "duplicate_column", kind)
}

func TestValidateUndefinedConstant(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[{"name":"x","path":"telecom.where(system = %sys).value"}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "undefined_constant", kind)
}

func TestValidateConstantSubstitution(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"constant":[{"name":"sys","valueString":"phone"}],
		"select":[{"column":[{"name":"x","path":"telecom.where(system = %sys).value.first()"}]}]
	}`)
	require.NoError(t, Validate(d))
}

func TestValidateUnknownType(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[{"name":"id","path":"id","type":"notAType"}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "unknown_type", kind)
}

func TestValidateCollectionMismatch(t *testing.T) {
	d := mustParse(t, `{
		"resource":"Patient",
		"select":[{"column":[{"name":"names","path":"name","collection":false}]}]
	}`)
	err := Validate(d)
	require.Error(t, err)
	kind, _ := compileerr.ValidationKind(err)
	assert.Equal(t, "collection_mismatch", kind)
}

func colNames(p *relation.Project) []string {
	names := make([]string, len(p.Cols))
	for i, c := range p.Cols {
		names[i] = c.Name
	}
	return names
}
