package viewdef

import (
	"strings"

	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/parser"
)

// identCollector gathers every `%name` reference in an AST using the
// same depth-first Visitor idiom the ast package's other tree walks use
// for free-variable collection passes.
type identCollector struct{ names map[string]bool }

func (c *identCollector) Visit(n ast.Node) ast.Visitor {
	if n == nil {
		return nil
	}
	if id, ok := n.(*ast.Identifier); ok && strings.HasPrefix(id.Name, "%") {
		c.names[id.Name] = true
	}
	return c
}

// parseAndSubstitute parses a FHIRPath string, rejects it if it
// references an undefined `%name` constant, and otherwise returns the
// AST with every reference replaced by its literal value from env.
func parseAndSubstitute(path string, env map[string]ast.Node) (ast.Node, error) {
	n, err := parser.Parse(path)
	if err != nil {
		return nil, compileerr.NewValidation("path_parse_error", "%q: %v", path, err)
	}
	collector := &identCollector{names: map[string]bool{}}
	ast.Walk(collector, n)
	for name := range collector.names {
		if _, ok := env[name]; !ok {
			return nil, compileerr.NewValidationAt("undefined_constant", n.Location(), "undefined constant %s referenced in %q", name, path)
		}
	}
	return ast.Transform(n, func(x ast.Node) ast.Node {
		id, ok := x.(*ast.Identifier)
		if !ok {
			return x
		}
		if lit, found := env[id.Name]; found {
			return lit
		}
		return x
	}), nil
}
