package ast

// Transform rebuilds n bottom-up: every child is transformed first (via
// the node's New* constructor, since nodes are immutable value holders
// with no in-place child mutation), then fn is applied to the rebuilt
// node. Returning a different Node from fn substitutes it in place of
// the original — used by the ViewDefinition translator to replace
// `%name` constant references with their literal values (§4.E, §9).
func Transform(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	var rebuilt Node
	switch x := n.(type) {
	case *Literal:
		rebuilt = x
	case *Identifier:
		rebuilt = x
	case *MemberAccess:
		rebuilt = NewMemberAccess(x.Location(), Transform(x.Expr, fn), x.Name)
	case *Invocation:
		var expr Node
		if x.Expr != nil {
			expr = Transform(x.Expr, fn)
		}
		args := make([]Node, len(x.Args))
		for i, a := range x.Args {
			args[i] = Transform(a, fn)
		}
		rebuilt = NewInvocation(x.Location(), expr, x.Name, args)
	case *Indexer:
		rebuilt = NewIndexer(x.Location(), Transform(x.Expr, fn), Transform(x.Index, fn))
	case *Unary:
		rebuilt = NewUnary(x.Location(), x.Op, Transform(x.Operand, fn))
	case *Binary:
		rebuilt = NewBinary(x.Location(), x.Op, Transform(x.Left, fn), Transform(x.Right, fn))
	case *TypeOp:
		rebuilt = NewTypeOp(x.Location(), x.Op, Transform(x.Expr, fn), x.TypeName)
	default:
		rebuilt = n
	}
	return fn(rebuilt)
}
