// Package ast defines the immutable FHIRPath abstract syntax tree (§3)
// and a depth-first Visitor, following the tagged-variant-plus-Visitor
// idiom of the reference corpus's expr.Node / expr.Visitor types.
package ast

import "github.com/joelmontavon/fhir4ds-sub001/fhirpath/token"

// DataType is the literal data type tag carried by a Literal node.
type DataType int

const (
	Null DataType = iota
	StringType
	IntegerType
	DecimalType
	BooleanType
	DateType
	DateTimeType
	TimeType
	QuantityType
)

// Cardinality is the statically-inferred population metadata attached to
// a node: whether it denotes at most one value or a possibly-empty
// collection. The parser always produces Unknown, and the pipeline never
// attaches another value: the ViewDefinition validator computes
// cardinality with viewdef.InferCardinality and uses the result directly.
type Cardinality int

const (
	Unknown Cardinality = iota
	Scalar
	Collection
)

// Meta is the population metadata every node carries in addition to its
// source location.
type Meta struct {
	Cardinality Cardinality
	FHIRType    string
}

// UnaryOp is the closed set of unary operators.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
)

func (o UnaryOp) String() string {
	switch o {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	case UnaryNot:
		return "not"
	}
	return "?"
}

// BinaryOp is the closed set of binary operators, drawn from the
// precedence table in §4.D.
type BinaryOp int

const (
	OpImplies BinaryOp = iota
	OpOr
	OpXor
	OpAnd
	OpEq
	OpNeq
	OpEquiv    // ~
	OpNotEquiv // !~
	OpLt
	OpLe
	OpGt
	OpGe
	OpUnion // |
	OpAdd
	OpSub
	OpConcat // &
	OpMul
	OpDiv
	OpIntDiv // div
	OpMod
	OpIn
	OpContains
)

var binaryNames = map[BinaryOp]string{
	OpImplies: "implies", OpOr: "or", OpXor: "xor", OpAnd: "and",
	OpEq: "=", OpNeq: "!=", OpEquiv: "~", OpNotEquiv: "!~",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpUnion: "|", OpAdd: "+", OpSub: "-", OpConcat: "&",
	OpMul: "*", OpDiv: "/", OpIntDiv: "div", OpMod: "mod",
	OpIn: "in", OpContains: "contains",
}

func (o BinaryOp) String() string { return binaryNames[o] }

// TypeOpKind is the closed set of type operators.
type TypeOpKind int

const (
	OpIs TypeOpKind = iota
	OpAs
	OpOfType
)

func (o TypeOpKind) String() string {
	switch o {
	case OpIs:
		return "is"
	case OpAs:
		return "as"
	case OpOfType:
		return "ofType"
	}
	return "?"
}

// Node is the interface satisfied by every AST case. Nodes are immutable
// after construction: every field is set once, at New*() time.
type Node interface {
	// Location returns the source span the node was parsed from.
	Location() token.Location
	// Meta returns the node's population metadata.
	Meta() Meta
	// walk visits the node's direct children in source order.
	walk(v Visitor)
	node()
}

// Visitor is invoked for each node encountered by Walk. If the Visitor it
// returns is non-nil, Walk visits the node's children with it, followed
// by a call to w.Visit(nil).
type Visitor interface {
	Visit(Node) Visitor
}

// Walk traverses an AST in depth-first, left-to-right order.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	w := v.Visit(n)
	if w == nil {
		return
	}
	n.walk(w)
	w.Visit(nil)
}

type base struct {
	loc  token.Location
	meta Meta
}

func (b base) Location() token.Location { return b.loc }
func (b base) Meta() Meta               { return b.meta }
func (base) node()                      {}

// WithMeta returns a shallow copy of n with its population metadata
// replaced. Because every node field is unexported and set at
// construction time, this is the only way to attach cardinality/type
// information after the fact; it never mutates the node in place. The
// compilation pipeline itself does not call it.
func WithMeta(n Node, m Meta) Node {
	switch v := n.(type) {
	case *Literal:
		c := *v
		c.meta = m
		return &c
	case *Identifier:
		c := *v
		c.meta = m
		return &c
	case *MemberAccess:
		c := *v
		c.meta = m
		return &c
	case *Invocation:
		c := *v
		c.meta = m
		return &c
	case *Indexer:
		c := *v
		c.meta = m
		return &c
	case *Unary:
		c := *v
		c.meta = m
		return &c
	case *Binary:
		c := *v
		c.meta = m
		return &c
	case *TypeOp:
		c := *v
		c.meta = m
		return &c
	default:
		return n
	}
}

// Literal is a literal value: string, numeric, boolean, date/time, or
// quantity.
type Literal struct {
	base
	Value    string // the literal's source-text payload (already unescaped for strings)
	DataType DataType
	// Unit is set only for DataType == QuantityType.
	Unit string
}

func NewLiteral(loc token.Location, dt DataType, value, unit string) *Literal {
	return &Literal{base: base{loc: loc}, Value: value, DataType: dt, Unit: unit}
}

func (l *Literal) walk(Visitor) {}

// Identifier is a bare name: a resource type, a field name, or a
// context variable like $this.
type Identifier struct {
	base
	Name string
}

func NewIdentifier(loc token.Location, name string) *Identifier {
	return &Identifier{base: base{loc: loc}, Name: name}
}

func (*Identifier) walk(Visitor) {}

// MemberAccess is dotted field access, e.g. `a.b`.
type MemberAccess struct {
	base
	Expr Node
	Name string
}

func NewMemberAccess(loc token.Location, expr Node, name string) *MemberAccess {
	return &MemberAccess{base: base{loc: loc}, Expr: expr, Name: name}
}

func (m *MemberAccess) walk(v Visitor) { Walk(v, m.Expr) }

// Invocation is a function call. Expr is nil iff the function appears at
// the start of an expression (e.g. a bare `today()`).
type Invocation struct {
	base
	Expr Node // receiver, or nil
	Name string
	Args []Node
}

func NewInvocation(loc token.Location, expr Node, name string, args []Node) *Invocation {
	return &Invocation{base: base{loc: loc}, Expr: expr, Name: name, Args: args}
}

func (i *Invocation) walk(v Visitor) {
	if i.Expr != nil {
		Walk(v, i.Expr)
	}
	for _, a := range i.Args {
		Walk(v, a)
	}
}

// Indexer is `a[i]`.
type Indexer struct {
	base
	Expr  Node
	Index Node
}

func NewIndexer(loc token.Location, expr, index Node) *Indexer {
	return &Indexer{base: base{loc: loc}, Expr: expr, Index: index}
}

func (ix *Indexer) walk(v Visitor) { Walk(v, ix.Expr); Walk(v, ix.Index) }

// Unary is a prefix operator applied to a single operand.
type Unary struct {
	base
	Op      UnaryOp
	Operand Node
}

func NewUnary(loc token.Location, op UnaryOp, operand Node) *Unary {
	return &Unary{base: base{loc: loc}, Op: op, Operand: operand}
}

func (u *Unary) walk(v Visitor) { Walk(v, u.Operand) }

// Binary is an infix operator; all FHIRPath binary operators are
// left-associative (§4.D).
type Binary struct {
	base
	Op          BinaryOp
	Left, Right Node
}

func NewBinary(loc token.Location, op BinaryOp, left, right Node) *Binary {
	return &Binary{base: base{loc: loc}, Op: op, Left: left, Right: right}
}

func (b *Binary) walk(v Visitor) { Walk(v, b.Left); Walk(v, b.Right) }

// TypeOp is `is`/`as`/`ofType` applied to an expression and a type name.
type TypeOp struct {
	base
	Op       TypeOpKind
	Expr     Node
	TypeName string
}

func NewTypeOp(loc token.Location, op TypeOpKind, expr Node, typeName string) *TypeOp {
	return &TypeOp{base: base{loc: loc}, Op: op, Expr: expr, TypeName: typeName}
}

func (t *TypeOp) walk(v Visitor) { Walk(v, t.Expr) }
