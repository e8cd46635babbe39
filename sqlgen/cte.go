package sqlgen

import "strconv"

// CTE is one named common table expression in the generated statement's
// dependency-ordered CTE list (§3, §4.H). ColumnSig records the ordered
// column names this CTE's body projects, used only for diagnostics —
// the assembler itself trusts dependency order, not column shape.
type CTE struct {
	Name      string
	ColumnSig []string
	SQLBody   string
	DependsOn []string
}

// OutputColumn is one entry of the compiled statement's declared output
// column list (§6).
type OutputColumn struct {
	Name             string
	Nullable         bool
	InferredTypeHint string
}

// nameCounter hands out the t<N> CTE names in the order the generator
// visits Relation Tree nodes, seeded at 1 per compilation (§4.H).
type nameCounter struct{ n int }

func (c *nameCounter) next() string {
	c.n++
	return ctePrefix + strconv.Itoa(c.n)
}

const ctePrefix = "t"
