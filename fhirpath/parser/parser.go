// Package parser implements the FHIRPath recursive-descent,
// precedence-climbing parser (§4.D). It follows the reference corpus's
// hand-written-scanner-plus-table-driven-parse idiom (expr/partiql),
// adapted from goyacc-generated grammar rules to an explicit precedence
// ladder: a hand-written recursive descent parser rather than a
// generated one.
package parser

import (
	"github.com/joelmontavon/fhir4ds-sub001/compileerr"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/ast"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/lexer"
	"github.com/joelmontavon/fhir4ds-sub001/fhirpath/token"
)

// timeUnits is the set of bare (unquoted) calendar-duration unit
// keywords accepted after a numeric literal to form a Quantity literal,
// e.g. `4 days`.
var timeUnits = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true,
	"millisecond": true, "milliseconds": true,
}

// Parse lexes and parses a FHIRPath expression string, returning its AST.
// On the first lexer or parser error, parsing stops immediately: no
// partial AST is ever returned (§7).
func Parse(src string) (ast.Node, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.EOF {
		return nil, p.errorf("unexpected token %s after expression", p.cur())
	}
	return n, nil
}

type parser struct {
	toks []token.Token
	pos  int
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) atEnd() bool       { return p.cur().Kind == token.EOF }
func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(k token.Kind, what string) (token.Token, error) {
	if !p.check(k) {
		return token.Token{}, p.errorf("expected %s, found %s", what, p.cur())
	}
	return p.advance(), nil
}

func (p *parser) errorf(format string, args ...any) error {
	return compileerr.NewParse(p.cur().Location, format, args...)
}

// parseExpr parses a full expression, starting at the lowest precedence
// level: `implies`.
func (p *parser) parseExpr() (ast.Node, error) {
	return p.parseImplies()
}

func (p *parser) parseImplies() (ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.check(token.IMPLIES) {
		loc := p.cur().Location
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, ast.OpImplies, left, right)
	}
	return left, nil
}

// parseOr handles `or` and `xor`, which share a precedence level.
func (p *parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(token.OR) || p.check(token.XOR) {
		loc := p.cur().Location
		op := ast.OpOr
		if p.cur().Kind == token.XOR {
			op = ast.OpXor
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, op, left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.check(token.AND) {
		loc := p.cur().Location
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, ast.OpAnd, left, right)
	}
	return left, nil
}

var equalityOps = map[token.Kind]ast.BinaryOp{
	token.EQ: ast.OpEq, token.NEQ: ast.OpNeq,
	token.TILDE: ast.OpEquiv, token.NEQUIV: ast.OpNotEquiv,
}

func (p *parser) parseEquality() (ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := equalityOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		loc := p.cur().Location
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, op, left, right)
	}
}

var comparisonOps = map[token.Kind]ast.BinaryOp{
	token.LT: ast.OpLt, token.LE: ast.OpLe, token.GT: ast.OpGt, token.GE: ast.OpGe,
}

func (p *parser) parseComparison() (ast.Node, error) {
	left, err := p.parseTypeOp()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		loc := p.cur().Location
		p.advance()
		right, err := p.parseTypeOp()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, op, left, right)
	}
}

// parseTypeOp handles the infix forms `expr is TypeName` and
// `expr as TypeName` (§4.D). The right-hand side of `is`/`as` is a
// single type name, not a general expression.
func (p *parser) parseTypeOp() (ast.Node, error) {
	left, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	for p.check(token.IS) || p.check(token.AS) {
		loc := p.cur().Location
		kind := ast.OpIs
		if p.cur().Kind == token.AS {
			kind = ast.OpAs
		}
		p.advance()
		name, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		left = ast.NewTypeOp(loc, kind, left, name)
	}
	return left, nil
}

// parseTypeName parses a (possibly qualified) type name, e.g. `Quantity`
// or `FHIR.Quantity`.
func (p *parser) parseTypeName() (string, error) {
	t, err := p.expectIdentLike("type name")
	if err != nil {
		return "", err
	}
	name := t.Lexeme
	for p.check(token.DOT) {
		p.advance()
		t, err := p.expectIdentLike("type name segment")
		if err != nil {
			return "", err
		}
		name += "." + t.Lexeme
	}
	return name, nil
}

func (p *parser) expectIdentLike(what string) (token.Token, error) {
	if p.check(token.IDENT) || p.check(token.DELIM) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorf("expected %s, found %s", what, p.cur())
}

func (p *parser) parseUnion() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.check(token.PIPE) {
		loc := p.cur().Location
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, ast.OpUnion, left, right)
	}
	return left, nil
}

var additiveOps = map[token.Kind]ast.BinaryOp{
	token.PLUS: ast.OpAdd, token.MINUS: ast.OpSub, token.AMP: ast.OpConcat,
}

func (p *parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := additiveOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		loc := p.cur().Location
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, op, left, right)
	}
}

func (p *parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.STAR:
			op = ast.OpMul
		case token.SLASH:
			op = ast.OpDiv
		case token.DIV:
			op = ast.OpIntDiv
		case token.MOD:
			op = ast.OpMod
		default:
			return left, nil
		}
		loc := p.cur().Location
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(loc, op, left, right)
	}
}

func (p *parser) parseUnary() (ast.Node, error) {
	switch p.cur().Kind {
	case token.PLUS:
		loc := p.cur().Location
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(loc, ast.UnaryPlus, operand), nil
	case token.MINUS:
		loc := p.cur().Location
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(loc, ast.UnaryMinus, operand), nil
	case token.NOT:
		loc := p.cur().Location
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(loc, ast.UnaryNot, operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by zero or more
// `.name`, `.name(args)`, or `[index]` suffixes (§4.D).
func (p *parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			expr, err = p.parseMemberOrInvocation(expr)
			if err != nil {
				return nil, err
			}
		case token.LBRACKET:
			loc := p.cur().Location
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
				return nil, err
			}
			expr = ast.NewIndexer(loc, expr, idx)
		default:
			return expr, nil
		}
	}
}

// parseMemberOrInvocation parses the member name following a '.' and,
// if followed by '(', the argument list, producing a MemberAccess or an
// Invocation with expr as the receiver. `is`, `as`, and `ofType` invoked
// this way are lowered to TypeOp nodes (§4.D).
func (p *parser) parseMemberOrInvocation(receiver ast.Node) (ast.Node, error) {
	loc := p.cur().Location
	nameTok, err := p.expectMemberName()
	if err != nil {
		return nil, err
	}
	name := nameTok.Lexeme
	if !p.check(token.LPAREN) {
		return ast.NewMemberAccess(loc, receiver, name), nil
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return p.buildInvocationOrTypeOp(loc, receiver, name, args)
}

// expectMemberName accepts an identifier, a backtick-delimited
// identifier, or one of the keyword tokens that FHIRPath also permits as
// member/function names (e.g. `where`, `as`, `is`, `contains`, `div`,
// `mod`, `and`, `or`).
func (p *parser) expectMemberName() (token.Token, error) {
	switch p.cur().Kind {
	case token.IDENT, token.DELIM,
		token.AND, token.OR, token.XOR, token.IMPLIES, token.NOT,
		token.IS, token.AS, token.IN, token.CONTAINS, token.MOD, token.DIV,
		token.TRUE, token.FALSE:
		return p.advance(), nil
	}
	return token.Token{}, p.errorf("expected identifier after '.'")
}

func (p *parser) parseArgList() ([]ast.Node, error) {
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Node
	if !p.check(token.RPAREN) {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// buildInvocationOrTypeOp lowers `.ofType(T)`, `.is(T)`, `.as(T)` to
// TypeOp nodes when called with a single identifier argument (§4.D);
// every other function call becomes a plain Invocation.
func (p *parser) buildInvocationOrTypeOp(loc token.Location, receiver ast.Node, name string, args []ast.Node) (ast.Node, error) {
	var kind ast.TypeOpKind
	switch name {
	case "ofType":
		kind = ast.OpOfType
	case "is":
		kind = ast.OpIs
	case "as":
		kind = ast.OpAs
	default:
		return ast.NewInvocation(loc, receiver, name, args), nil
	}
	if len(args) != 1 {
		return ast.NewInvocation(loc, receiver, name, args), nil
	}
	ident, ok := args[0].(*ast.Identifier)
	if !ok {
		return ast.NewInvocation(loc, receiver, name, args), nil
	}
	return ast.NewTypeOp(loc, kind, receiver, ident.Name), nil
}

// parsePrimary parses a parenthesised expression, a literal, an
// identifier, or a function invocation with no receiver.
func (p *parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case token.STRING:
		p.advance()
		return ast.NewLiteral(t.Location, ast.StringType, t.Lexeme, ""), nil
	case token.TRUE:
		p.advance()
		return ast.NewLiteral(t.Location, ast.BooleanType, "true", ""), nil
	case token.FALSE:
		p.advance()
		return ast.NewLiteral(t.Location, ast.BooleanType, "false", ""), nil
	case token.DATE:
		p.advance()
		return ast.NewLiteral(t.Location, ast.DateType, t.Lexeme, ""), nil
	case token.TIME:
		p.advance()
		return ast.NewLiteral(t.Location, ast.TimeType, t.Lexeme, ""), nil
	case token.DATETIME:
		p.advance()
		return ast.NewLiteral(t.Location, ast.DateTimeType, t.Lexeme, ""), nil
	case token.INTEGER, token.DECIMAL:
		return p.parseNumericLiteral()
	case token.PERCENT:
		p.advance()
		name, err := p.expectIdentLike("constant name")
		if err != nil {
			return nil, err
		}
		return ast.NewIdentifier(t.Location, "%"+name.Lexeme), nil
	case token.IDENT, token.DELIM:
		return p.parseIdentOrInvocation()
	}
	return nil, p.errorf("unexpected token %s", t)
}

func (p *parser) parseNumericLiteral() (ast.Node, error) {
	t := p.advance()
	dt := ast.IntegerType
	if t.Kind == token.DECIMAL {
		dt = ast.DecimalType
	}
	unit := ""
	switch {
	case p.check(token.STRING):
		unit = p.advance().Lexeme
		dt = ast.QuantityType
	case p.check(token.IDENT) && timeUnits[p.cur().Lexeme]:
		unit = p.advance().Lexeme
		dt = ast.QuantityType
	}
	return ast.NewLiteral(t.Location, dt, t.Lexeme, unit), nil
}

// parseIdentOrInvocation parses a bare identifier, or — when followed
// directly by '(' — a function invocation with no receiver (Invocation
// with expr == nil, §3).
func (p *parser) parseIdentOrInvocation() (ast.Node, error) {
	t := p.advance()
	if !p.check(token.LPAREN) {
		return ast.NewIdentifier(t.Location, t.Lexeme), nil
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return p.buildInvocationOrTypeOp(t.Location, nil, t.Lexeme, args)
}
