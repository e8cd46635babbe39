// Package fhirmodel holds the small amount of FHIR resource-shape
// knowledge the compiler needs without embedding a full
// StructureDefinition model: which element names are collection-valued
// and which are boolean-valued. Both the ViewDefinition validator
// (viewdef) and the CTE generator (sqlgen) consult it, so it lives
// beneath both rather than being duplicated or hung off either one.
package fhirmodel

// CollectionFields is the set of FHIR element names treated as
// statically collection-cardinality. It covers the repeating elements
// exercised by the conformance scenarios and the choice-type map's
// polymorphic siblings; anything not listed defaults to scalar.
// Extending it is an append-only operation, matching the choice-type
// table's own extension contract (§9).
var CollectionFields = map[string]bool{
	"name": true, "telecom": true, "identifier": true, "extension": true,
	"address": true, "contact": true, "communication": true, "given": true,
	"line": true, "coding": true, "entry": true, "link": true,
	"parameter": true, "note": true, "photo": true, "qualification": true,
	"content": true, "category": true, "performer": true, "reasonCode": true,
	"basedOn": true, "partOf": true, "component": true, "interpretation": true,
	"target": true, "item": true, "answer": true, "modifierExtension": true,
}

// BooleanFields covers FHIR element names (outside the choice-type
// table) whose value is itself a boolean.
var BooleanFields = map[string]bool{
	"active": true, "deceasedBoolean": true, "multipleBirthBoolean": true,
	"experimental": true, "abstract": true,
}

// IsCollectionField reports whether name is a known repeating element.
func IsCollectionField(name string) bool { return CollectionFields[name] }

// IsBooleanField reports whether name is a known boolean element.
func IsBooleanField(name string) bool { return BooleanFields[name] }
