package viewdef

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
)

// Validate checks a ViewDefinition document against every structural
// rule in §4.E and returns the first violation found as a
// compileerr.ValidationError, tagged with a stable machine-readable
// kind (§7). Validation always runs before translation; Translate
// calls it itself, so callers that only need validation (e.g. a CLI
// "lint" path) can call this directly without generating anything.
func Validate(doc *Document) error {
	if doc == nil || doc.isEmpty() {
		return compileerr.NewValidation("empty", "view definition document is empty or not a JSON object")
	}
	if strings.TrimSpace(doc.Resource) == "" {
		return compileerr.NewValidation("missing_resource", "resource field is required")
	}
	if len(doc.Select) == 0 {
		return compileerr.NewValidation("missing_select", "select must be a non-empty array")
	}

	env := buildConstantsEnv(doc.Constant)

	for _, w := range doc.Where {
		n, err := parseAndSubstitute(w.Path, env)
		if err != nil {
			return err
		}
		if !IsBoolean(n) {
			return compileerr.NewValidationAt("where_not_boolean", n.Location(), "where path %q does not statically resolve to boolean", w.Path)
		}
	}

	names, err := validateGroup(doc.Select, env)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if seen[name] {
			return compileerr.NewValidation("duplicate_column", "duplicate column name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// validateGroup validates one slice of sibling select elements
// (whether the document's top-level `select` array, a nested `select`,
// or the branches of a `unionAll`) and returns the ordered, flattened
// column-name vector it contributes.
func validateGroup(elements []SelectElement, env map[string]ast.Node) ([]string, error) {
	var names []string
	for _, se := range elements {
		if se.ForEach != "" && se.ForEachOrNull != "" {
			return nil, compileerr.NewValidation("multiple_iteration", "select element declares both forEach and forEachOrNull")
		}
		iterPath := se.ForEach
		if iterPath == "" {
			iterPath = se.ForEachOrNull
		}
		if iterPath != "" {
			n, err := parseAndSubstitute(iterPath, env)
			if err != nil {
				return nil, err
			}
			if InferCardinality(n) != ast.Collection {
				return nil, compileerr.NewValidationAt("foreach_requires_collection", n.Location(), "forEach path %q does not statically resolve to a collection", iterPath)
			}
		}

		for _, c := range se.Column {
			n, err := parseAndSubstitute(c.Path, env)
			if err != nil {
				return nil, err
			}
			if c.Type != "" && !knownPrimitiveTypes[c.Type] {
				return nil, compileerr.NewValidation("unknown_type", "column %q declares unknown type %q", c.Name, c.Type)
			}
			if !c.Collection && InferCardinality(n) == ast.Collection {
				return nil, compileerr.NewValidationAt("collection_mismatch", n.Location(), "column %q path %q is collection-valued but collection is false", c.Name, c.Path)
			}
			names = append(names, c.Name)
		}

		if len(se.Select) > 0 {
			nested, err := validateGroup(se.Select, env)
			if err != nil {
				return nil, err
			}
			names = append(names, nested...)
		}

		if len(se.UnionAll) > 0 {
			var first []string
			for i, u := range se.UnionAll {
				cols, err := validateGroup([]SelectElement{u}, env)
				if err != nil {
					return nil, err
				}
				if i == 0 {
					first = cols
				} else if !slices.Equal(cols, first) {
					return nil, compileerr.NewValidation("union_column_mismatch", "unionAll branch %d columns %v disagree with first branch %v", i, cols, first)
				}
			}
			names = append(names, first...)
		}
	}
	return names, nil
}
