package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhir4ds-sub001/viewdef"
)

// (a) Basic select: one Base CTE, one Project CTE, final SELECT reads
// the declared column off the last CTE.
func TestGenerateBasicSelect(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{"resource":"Patient","select":[{"column":[{"name":"id","path":"id"}]}]}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, cols, sql, err := Generate(proj, "resources", Embedded)
	require.NoError(t, err)
	require.Len(t, ctes, 2)
	assert.Equal(t, "t1", ctes[0].Name)
	assert.Equal(t, "t2", ctes[1].Name)
	assert.Nil(t, ctes[0].DependsOn)
	assert.Equal(t, []string{"t1"}, ctes[1].DependsOn)
	assert.Contains(t, ctes[0].SQLBody, "resourceType")
	assert.Contains(t, ctes[1].SQLBody, `"id"`)
	require.Len(t, cols, 1)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, strings.HasPrefix(sql, "WITH t1 AS ("))
	assert.Contains(t, sql, "SELECT \"id\" FROM t2")
}

// (b) where + first(): a where() inside a column path adds no Filter CTE
// (only the document-level `where` does), so there are just the Base and
// Project CTEs, and the column expression compiles the where/first()
// chain inline.
func TestGenerateWhereAndFirst(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{"column":[
			{"name":"id","path":"id"},
			{"name":"phone","path":"telecom.where(system='phone').value.first()"}
		]}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, cols, _, err := Generate(proj, "resources", Server)
	require.NoError(t, err)
	require.Len(t, ctes, 2)
	assert.Equal(t, []string{"id", "phone"}, []string{cols[0].Name, cols[1].Name})
	assert.Contains(t, ctes[1].SQLBody, "jsonb_array_elements")
}

// (c) forEach unnest produces a dedicated ForEach CTE between Base and
// Project, cross-applying the unnested collection.
func TestGenerateForEach(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{"forEach":"name","column":[{"name":"family","path":"family"}]}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, _, _, err := Generate(proj, "resources", Embedded)
	require.NoError(t, err)
	require.Len(t, ctes, 3)
	assert.Contains(t, ctes[1].SQLBody, "json_each")
	assert.NotContains(t, ctes[1].SQLBody, "LEFT JOIN")
}

// (d) forEachOrNull keeps empty-collection rows via a LEFT JOIN against
// the unnest, rather than the plain cross-apply comma join.
func TestGenerateForEachOrNull(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{"forEachOrNull":"name","column":[{"name":"family","path":"family"}]}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, _, _, err := Generate(proj, "resources", Embedded)
	require.NoError(t, err)
	require.Len(t, ctes, 3)
	assert.Contains(t, ctes[1].SQLBody, "LEFT JOIN")
}

// (e) unionAll: each branch gets its own Base/ForEach/Project chain, and
// a final UNION ALL CTE concatenates them before the outer Project,
// which passes the already-named union rows straight through.
func TestGenerateUnionAll(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{
			"forEach":"telecom",
			"unionAll":[
				{"column":[{"name":"kind","path":"system"},{"name":"value","path":"value"}]},
				{"column":[{"name":"kind","path":"system"},{"name":"value","path":"value"}]}
			]
		}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, cols, sql, err := Generate(proj, "resources", Embedded)
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "value"}, []string{cols[0].Name, cols[1].Name})

	var unionCTE *CTE
	for i := range ctes {
		if strings.Contains(ctes[i].SQLBody, "UNION ALL") {
			unionCTE = &ctes[i]
		}
	}
	require.NotNil(t, unionCTE, "expected a CTE whose body concatenates the unionAll branches")
	assert.Contains(t, sql, "FROM "+ctes[len(ctes)-1].Name)
}

// (f) extension shorthand + ofType compiles to a choice-type field
// extraction without error.
func TestGenerateExtensionShorthand(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{"column":[
			{"name":"birthsex","path":"extension('http://example.com/us-core-birthsex').value.ofType(code).first()"}
		]}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	_, _, sql, err := Generate(proj, "resources", Server)
	require.NoError(t, err)
	assert.Contains(t, sql, "WITH")
}

// Determinism (§8.3): compiling the same input twice yields byte-
// identical SQL and an identical fingerprint.
func TestGenerateIsDeterministic(t *testing.T) {
	docJSON := []byte(`{
		"resource":"Patient",
		"select":[{"column":[{"name":"id","path":"id"},{"name":"active","path":"active"}]}]
	}`)

	gen := func() string {
		d, err := viewdef.ParseDocument(docJSON)
		require.NoError(t, err)
		proj, err := viewdef.Translate(d)
		require.NoError(t, err)
		_, _, sql, err := Generate(proj, "resources", Embedded)
		require.NoError(t, err)
		return sql
	}

	sql1 := gen()
	sql2 := gen()
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, Fingerprint(sql1), Fingerprint(sql2))
}

// CTE naming never collides and always follows t<positive-integer>
// (§4.H).
func TestGenerateCTENamesAreSequentialAndUnique(t *testing.T) {
	d, err := viewdef.ParseDocument([]byte(`{
		"resource":"Patient",
		"select":[{"forEach":"name","column":[{"name":"family","path":"family"}]}]
	}`))
	require.NoError(t, err)
	proj, err := viewdef.Translate(d)
	require.NoError(t, err)

	ctes, _, _, err := Generate(proj, "resources", Embedded)
	require.NoError(t, err)
	seen := map[string]bool{}
	for i, c := range ctes {
		assert.False(t, seen[c.Name], "duplicate CTE name %s", c.Name)
		seen[c.Name] = true
		assert.Equal(t, "t", c.Name[:1])
		assert.Equal(t, i+1, int(c.Name[1])-'0')
	}
}
