package lexer

import (
	"testing"

	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexBasic(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"path", "Patient.name.family", []token.Kind{token.IDENT, token.DOT, token.IDENT, token.DOT, token.IDENT, token.EOF}},
		{"invocation", "name.where(use = 'official')", []token.Kind{
			token.IDENT, token.DOT, token.IDENT, token.LPAREN, token.IDENT, token.EQ, token.STRING, token.RPAREN, token.EOF,
		}},
		{"keywords", "true and false or not x", []token.Kind{
			token.TRUE, token.AND, token.FALSE, token.OR, token.NOT, token.IDENT, token.EOF,
		}},
		{"operators", "1 + 2 - 3 * 4 / 5 <= 6 != 7", []token.Kind{
			token.INTEGER, token.PLUS, token.INTEGER, token.MINUS, token.INTEGER, token.STAR, token.INTEGER,
			token.SLASH, token.INTEGER, token.LE, token.INTEGER, token.NEQ, token.INTEGER, token.EOF,
		}},
		{"decimal", "3.14", []token.Kind{token.DECIMAL, token.EOF}},
		{"comment", "name // trailing comment\n.family", []token.Kind{token.IDENT, token.DOT, token.IDENT, token.EOF}},
		{"backtick", "`where`.count()", []token.Kind{token.DELIM, token.DOT, token.IDENT, token.LPAREN, token.RPAREN, token.EOF}},
		{"constant", "%resource.id", []token.Kind{token.PERCENT, token.IDENT, token.DOT, token.IDENT, token.EOF}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			toks, err := Lex(c.src)
			if err != nil {
				t.Fatalf("Lex(%q): %v", c.src, err)
			}
			got := kinds(toks)
			if len(got) != len(c.want) {
				t.Fatalf("Lex(%q) = %v, want %v", c.src, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("Lex(%q)[%d] = %v, want %v", c.src, i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := Lex(`'a\'b\\c\n\tA'`)
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 2 || toks[0].Kind != token.STRING {
		t.Fatalf("unexpected tokens: %v", toks)
	}
	want := "a'b\\c\n\tA"
	if toks[0].Lexeme != want {
		t.Errorf("got %q, want %q", toks[0].Lexeme, want)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := Lex("'abc")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLexPositions(t *testing.T) {
	toks, err := Lex("a.\nb")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Location.Line != 1 || toks[0].Location.Column != 1 {
		t.Errorf("a: got %+v", toks[0].Location)
	}
	// 'b' is on line 2, column 1
	var bTok token.Token
	for _, tk := range toks {
		if tk.Kind == token.IDENT && tk.Lexeme == "b" {
			bTok = tk
		}
	}
	if bTok.Location.Line != 2 || bTok.Location.Column != 1 {
		t.Errorf("b: got %+v", bTok.Location)
	}
}

func TestLexUnknownCharacter(t *testing.T) {
	_, err := Lex("a ^ b")
	if err == nil {
		t.Fatal("expected error")
	}
}

// offsets must be strictly increasing across the token stream (data
// model invariant, §3).
func TestLexOffsetsIncreasing(t *testing.T) {
	toks, err := Lex("Patient.name.where(use = 'official').family")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(toks)-1; i++ {
		if toks[i].Location.Offset <= toks[i-1].Location.Offset {
			t.Fatalf("offsets not increasing at %d: %+v vs %+v", i, toks[i-1], toks[i])
		}
	}
}
