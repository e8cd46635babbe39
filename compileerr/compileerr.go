// Package compileerr defines the four error kinds produced anywhere in the
// compilation pipeline (§7): LexerError, ParseError, ValidationError, and
// GenerationError. Each kind is a *errors.Kind from
// gopkg.in/src-d/go-errors.v1, following the same "Kind.New(...)" /
// "Kind.Is(err)" idiom the reference corpus's SQL engine tests use to
// assert on specific error classes.
package compileerr

import (
	stderrors "errors"
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/token"
)

// The four error kinds. Every error constructed by this package carries
// exactly one of these. Errors that other packages pass through unchanged
// (an encoding/json type error from viewdef.ParseDocument, a failure to
// load the embedded choice-type table) carry none of them.
var (
	Lexer      = errors.NewKind("lexer error: %s")
	Parse      = errors.NewKind("parse error: %s")
	Validation = errors.NewKind("validation error: %s")
	Generation = errors.NewKind("generation error: %s")
)

// Located is satisfied by every error this package produces; it exposes
// the source location the error is anchored to, if any.
type Located interface {
	error
	Location() (token.Location, bool)
}

// located decorates a *errors.Error (or any error) with an optional
// source location and a stable machine-readable kind tag.
type located struct {
	err error
	kd  string
	loc token.Location
	has bool
}

func (l *located) Error() string {
	if l.has {
		return fmt.Sprintf("%s: %s", l.loc, l.err.Error())
	}
	return l.err.Error()
}

func (l *located) Unwrap() error { return l.err }

func (l *located) Location() (token.Location, bool) { return l.loc, l.has }

// Kind returns the stable machine-readable tag attached when the error
// was constructed (e.g. "missing_resource", "foreach_requires_collection").
func (l *located) Kind() string { return l.kd }

// NewLexer builds a LexerError at loc.
func NewLexer(loc token.Location, format string, args ...any) error {
	return &located{err: Lexer.New(fmt.Sprintf(format, args...)), loc: loc, has: true}
}

// NewParse builds a ParseError at loc.
func NewParse(loc token.Location, format string, args ...any) error {
	return &located{err: Parse.New(fmt.Sprintf(format, args...)), loc: loc, has: true}
}

// NewValidation builds a ValidationError tagged with a stable machine
// kind (e.g. "empty", "missing_resource", "where_not_boolean").
func NewValidation(kind string, format string, args ...any) error {
	return &located{err: Validation.New(fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))), kd: kind}
}

// NewValidationAt is NewValidation with an attached source location,
// for failures that trace back to a parsed FHIRPath sub-expression.
func NewValidationAt(kind string, loc token.Location, format string, args ...any) error {
	return &located{err: Validation.New(fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))), kd: kind, loc: loc, has: true}
}

// NewGeneration builds a GenerationError; reserved for dialect/operator
// combinations this module declines to support (§7).
func NewGeneration(format string, args ...any) error {
	return &located{err: Generation.New(fmt.Sprintf(format, args...))}
}

// ValidationKind extracts the stable machine-readable kind tag from an
// error produced by NewValidation/NewValidationAt, if any.
func ValidationKind(err error) (string, bool) {
	var l *located
	if !stderrors.As(err, &l) || l.kd == "" {
		return "", false
	}
	return l.kd, true
}
