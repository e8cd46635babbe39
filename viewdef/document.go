// Package viewdef parses, validates, and translates SQL-on-FHIR
// ViewDefinition JSON documents (§4.E) into a relation.Node tree, using
// the fhirpath parser for every embedded path expression. Structurally
// it plays the role the reference corpus's plan/pir.Build does for
// PartiQL: a single-pass lowering from a declarative document into the
// IR the downstream SQL generator consumes.
package viewdef

import (
	"encoding/json"
	"strings"
)

// Document is the top-level ViewDefinition shape recognised by this
// compiler (§4.E). Fields outside this set are accepted and ignored,
// matching the reference FHIR ViewDefinition resource's open schema.
type Document struct {
	Resource string          `json:"resource"`
	Select   []SelectElement `json:"select"`
	Where    []WherePath     `json:"where"`
	Constant []Constant      `json:"constant"`

	// raw records whether the document decoded to an empty/non-object
	// value, used by Validate to distinguish "empty document" from
	// "document missing a resource field".
	raw map[string]json.RawMessage
}

// WherePath is one element of the top-level `where` array.
type WherePath struct {
	Path string `json:"path"`
}

// ColumnDef is one element of a select element's `column` array.
type ColumnDef struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Collection  bool   `json:"collection"`
	Description string `json:"description"`
}

// SelectElement is one element of a `select` array, possibly nested via
// its own `select`, or fanned out via `unionAll` (§4.E).
type SelectElement struct {
	Column        []ColumnDef     `json:"column"`
	Select        []SelectElement `json:"select"`
	ForEach       string          `json:"forEach"`
	ForEachOrNull string          `json:"forEachOrNull"`
	UnionAll      []SelectElement `json:"unionAll"`
}

// Constant is one element of the top-level `constant` array: a name and
// exactly one `value<Type>` field, e.g. `{"name":"sys","valueString":"phone"}`.
type Constant struct {
	Name       string
	ValueField string // e.g. "valueString"; "" if none was present
	Value      any    // decoded JSON scalar
}

func (c *Constant) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if nameRaw, ok := raw["name"]; ok {
		if err := json.Unmarshal(nameRaw, &c.Name); err != nil {
			return err
		}
	}
	for k, v := range raw {
		if k == "name" || !strings.HasPrefix(k, "value") {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		c.ValueField = k
		c.Value = val
	}
	return nil
}

// ParseDocument decodes a ViewDefinition from JSON bytes. Input that is
// not a JSON object (including malformed JSON) yields an empty Document
// and a nil error, which Validate then rejects as "empty"; a JSON object
// whose fields have the wrong JSON types returns the encoding/json error.
// Call Validate on the result before translating it.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.raw = raw
	return &doc, nil
}

// isEmpty reports whether the document decoded to an empty JSON object
// (or a non-object value that degraded to the zero Document).
func (d *Document) isEmpty() bool {
	return len(d.raw) == 0
}
