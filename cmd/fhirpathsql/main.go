// Command fhirpathsql is the thin CLI collaborator described in §6: it
// reads a ViewDefinition document (JSON or YAML), compiles it to SQL,
// and prints the SQL to stdout and the declared column list to stderr.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/joelmontavon/fhir4ds-sub001/compile"
	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
)

var (
	dashDialect string
	dashTable   string
	dashVerbose bool
)

func init() {
	flag.StringVar(&dashDialect, "dialect", "embedded", `target SQL dialect: "embedded" or "server"`)
	flag.StringVar(&dashTable, "table", compile.DefaultTable, "source relation name the generated SQL reads from")
	flag.BoolVar(&dashVerbose, "v", false, "enable debug logging")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if dashVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		exit(err)
	}

	doc, err := toJSON(raw)
	if err != nil {
		exit(err)
	}

	result, err := compile.Compile(doc, compile.Options{Dialect: dashDialect, Table: dashTable})
	if err != nil {
		exitWithCode(err)
	}

	fmt.Println(result.SQL)
	for _, c := range result.Columns {
		fmt.Fprintf(os.Stderr, "%s\tnullable=%v\ttype=%s\n", c.Name, c.Nullable, c.InferredTypeHint)
	}
}

// toJSON accepts either JSON or YAML input, converting the latter so
// that viewdef.ParseDocument only ever sees JSON (§4 Configuration).
func toJSON(raw []byte) ([]byte, error) {
	if len(raw) > 0 && raw[0] == '{' {
		return raw, nil
	}
	return yaml.YAMLToJSON(raw)
}

// exitWithCode maps a compileerr error to the §6 CLI exit-code contract:
// 2 for ValidationError, 3 for ParseError/LexerError, 1 otherwise.
func exitWithCode(err error) {
	fmt.Fprintln(os.Stderr, err)
	if _, ok := compileerr.ValidationKind(err); ok {
		os.Exit(2)
	}
	switch {
	case compileerr.Parse.Is(err), compileerr.Lexer.Is(err):
		os.Exit(3)
	default:
		os.Exit(1)
	}
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <viewdef.json|viewdef.yaml>\n", os.Args[0])
	flag.PrintDefaults()
}
