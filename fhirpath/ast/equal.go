package ast

// Equal reports whether a and b are structurally equal, ignoring source
// locations and population metadata. This is what the parse-totality
// property test (§8.1) uses to compare a re-parsed AST against the
// original: printer(parse(x)) must parse back to an Equal tree.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.DataType == y.DataType && x.Value == y.Value && x.Unit == y.Unit
	case *Identifier:
		y, ok := b.(*Identifier)
		return ok && x.Name == y.Name
	case *MemberAccess:
		y, ok := b.(*MemberAccess)
		return ok && x.Name == y.Name && Equal(x.Expr, y.Expr)
	case *Invocation:
		y, ok := b.(*Invocation)
		if !ok || x.Name != y.Name || !Equal(x.Expr, y.Expr) || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Indexer:
		y, ok := b.(*Indexer)
		return ok && Equal(x.Expr, y.Expr) && Equal(x.Index, y.Index)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *TypeOp:
		y, ok := b.(*TypeOp)
		return ok && x.Op == y.Op && x.TypeName == y.TypeName && Equal(x.Expr, y.Expr)
	default:
		return false
	}
}
