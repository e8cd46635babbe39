// Package choicetype holds the fixed, build-time constant table of FHIR
// choice-type ("valueX"/"onsetX"/"effectiveX"/...) field mappings used by
// the CTE generator's ofType/is/as lowering (§4.F, §6, §9). The table is
// stored gzip-compressed as a go:embed-ed asset and inflated once, on
// first use, with klauspost/compress/gzip, the same library the
// reference corpus's block-storage layer (ion/blockfmt) uses to keep
// compressed chunks small.
package choicetype

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

//go:embed choicetypes.json.gz
var compressed []byte

// Mapping is one entry of the choice-type table: the polymorphic base
// name (e.g. "value"), the concrete FHIR type it maps to (e.g.
// "Quantity"), and the literal JSON field name FHIR uses to encode that
// choice (e.g. "valueQuantity").
type Mapping struct {
	Base     string `json:"base"`
	FHIRType string `json:"fhirType"`
	Field    string `json:"field"`
}

type table struct {
	Mappings []Mapping `json:"mappings"`
}

var (
	once     sync.Once
	byBase   map[string][]Mapping
	byField  map[string]Mapping
	loadErr  error
)

func load() {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		loadErr = err
		return
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		loadErr = err
		return
	}
	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		loadErr = err
		return
	}
	byBase = make(map[string][]Mapping)
	byField = make(map[string]Mapping, len(t.Mappings))
	for _, m := range t.Mappings {
		byBase[m.Base] = append(byBase[m.Base], m)
		byField[m.Field] = m
	}
	for base := range byBase {
		slices.SortFunc(byBase[base], func(a, b Mapping) bool { return a.FHIRType < b.FHIRType })
	}
}

// ensure is called lazily (rather than from an init func) so that a
// malformed embedded asset surfaces as a normal error from the first
// caller instead of a panic at program startup.
func ensure() error {
	once.Do(load)
	return loadErr
}

// ForBase returns every concrete type mapping registered for a
// polymorphic base name, e.g. ForBase("value") returns the Quantity,
// CodeableConcept, ... entries used to resolve value.ofType(Quantity).
func ForBase(base string) ([]Mapping, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	return byBase[base], nil
}

// FieldFor returns the concrete JSON field name for a (base, fhirType)
// pair, e.g. FieldFor("value", "Quantity") == "valueQuantity", and
// ok=false if the base/type combination is not registered.
func FieldFor(base, fhirType string) (string, bool, error) {
	if err := ensure(); err != nil {
		return "", false, err
	}
	for _, m := range byBase[base] {
		if m.FHIRType == fhirType {
			return m.Field, true, nil
		}
	}
	return "", false, nil
}

// TypeOfField returns the (base, fhirType) a concrete field name like
// "valueQuantity" resolves to, and ok=false if it is not a registered
// choice-type field.
func TypeOfField(field string) (Mapping, bool, error) {
	if err := ensure(); err != nil {
		return Mapping{}, false, err
	}
	m, ok := byField[field]
	return m, ok, nil
}

// Bases returns the sorted list of every registered polymorphic base
// name, mainly useful for diagnostics and tests.
func Bases() ([]string, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	bases := maps.Keys(byBase)
	slices.Sort(bases)
	return bases, nil
}

// Count returns the total number of registered mappings. The
// specification requires at least 187 (§6).
func Count() (int, error) {
	if err := ensure(); err != nil {
		return 0, err
	}
	n := 0
	for _, ms := range byBase {
		n += len(ms)
	}
	return n, nil
}
