// Package compile ties the pure pipeline stages (fhirpath, viewdef,
// relation, sqlgen) together into the single entry point described by
// the external interface (§6): a ViewDefinition document in, a SQL
// string and declared output column list out. It is the only package in
// this module that logs or otherwise touches anything beyond its
// arguments, mirroring how the reference corpus keeps expr/plan/pir
// free of I/O and confines logging to cmd/sneller.
package compile

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/joelmontavon/fhir4ds-sub001/sqlgen"
	"github.com/joelmontavon/fhir4ds-sub001/viewdef"
)

// DefaultTable is the source relation name the generated SQL reads from
// when a caller does not override it (§6 external interface).
const DefaultTable = "fhir_resources"

// Options configures one Compile call.
type Options struct {
	// Dialect selects the target SQL engine: "embedded" or "server".
	Dialect string
	// Table overrides the source relation name; DefaultTable if empty.
	Table string
	// Logger receives Debug-level phase diagnostics; logrus.StandardLogger()
	// if nil.
	Logger *logrus.Logger
}

// Result is the compiled output (§6): the assembled SQL statement, its
// CTE list (exposed mainly for diagnostics/tests), and the declared
// output column list.
type Result struct {
	SQL     string
	CTEs    []sqlgen.CTE
	Columns []sqlgen.OutputColumn
}

// Compile validates and lowers a ViewDefinition JSON/YAML document
// (already normalized to JSON by the caller, e.g. the CLI's YAML
// conversion) into a Result, or the first compileerr error encountered.
// Every call is tagged with a fresh correlation ID so a sequence of
// Debug log lines for one compilation can be grepped together; the ID
// has no effect on the generated SQL or its determinism (§8.3).
func Compile(doc []byte, opts Options) (*Result, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	dialect, ok := sqlgen.ByName(opts.Dialect)
	if !ok {
		dialect, _ = sqlgen.ByName("embedded")
		opts.Dialect = "embedded"
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithFields(logrus.Fields{
		"correlation_id": uuid.New().String(),
		"dialect":        opts.Dialect,
		"table":          table,
	})

	start := time.Now()

	entry.WithField("phase", "parse").Debug("parsing view definition")
	view, err := viewdef.ParseDocument(doc)
	if err != nil {
		entry.WithError(err).Debug("parse failed")
		return nil, err
	}
	entry = entry.WithField("resource", view.Resource)

	entry.WithField("phase", "translate").Debug("validating and translating view definition")
	root, err := viewdef.Translate(view)
	if err != nil {
		entry.WithError(err).Debug("translation failed")
		return nil, err
	}

	entry.WithField("phase", "generate").Debug("generating CTE list")
	ctes, cols, sql, err := sqlgen.Generate(root, table, dialect)
	if err != nil {
		entry.WithError(err).Debug("generation failed")
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"phase":     "assemble",
		"cte_count": len(ctes),
		"elapsed":   time.Since(start),
	}).Debug("compilation complete")

	return &Result{SQL: sql, CTEs: ctes, Columns: cols}, nil
}
