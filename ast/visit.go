package ast

import "reflect"

// Walk traverses expr in depth-first pre-order, calling fn for every node.
// If fn returns false the node's children are skipped.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Compare:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Call:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	case *And:
		for _, child := range e.Exprs {
			Walk(child, fn)
		}
	case *Or:
		for _, child := range e.Exprs {
			Walk(child, fn)
		}
	case *Not:
		Walk(e.Expr, fn)
	case *Tuple:
		for _, child := range e.Exprs {
			Walk(child, fn)
		}
	}
}

// Clone returns a deep copy of expr. Callers that hand a prebuilt tree to
// the compiler get a clone back, so later mutations of the original cannot
// leak into compiled output.
func Clone(expr Expr) Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *Constant:
		return &Constant{Value: cloneValue(e.Value)}
	case *Field:
		chain := make([]string, len(e.Chain))
		copy(chain, e.Chain)
		return &Field{Chain: chain}
	case *Compare:
		return &Compare{Op: e.Op, Left: Clone(e.Left), Right: Clone(e.Right)}
	case *Call:
		return &Call{Name: e.Name, Args: cloneList(e.Args)}
	case *And:
		return &And{Exprs: cloneList(e.Exprs)}
	case *Or:
		return &Or{Exprs: cloneList(e.Exprs)}
	case *Not:
		return &Not{Expr: Clone(e.Expr)}
	case *Tuple:
		return &Tuple{Exprs: cloneList(e.Exprs)}
	}
	return expr
}

func cloneList(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = Clone(e)
	}
	return out
}

func cloneValue(value any) any {
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = cloneValue(item)
		}
		return out
	}
	return value
}

// Equal reports whether two expressions are structurally equal.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ea := a.(type) {
	case *Constant:
		eb, ok := b.(*Constant)
		return ok && reflect.DeepEqual(ea.Value, eb.Value)
	case *Field:
		eb, ok := b.(*Field)
		if !ok || len(ea.Chain) != len(eb.Chain) {
			return false
		}
		for i := range ea.Chain {
			if ea.Chain[i] != eb.Chain[i] {
				return false
			}
		}
		return true
	case *Compare:
		eb, ok := b.(*Compare)
		return ok && ea.Op == eb.Op && Equal(ea.Left, eb.Left) && Equal(ea.Right, eb.Right)
	case *Call:
		eb, ok := b.(*Call)
		return ok && ea.Name == eb.Name && equalLists(ea.Args, eb.Args)
	case *And:
		eb, ok := b.(*And)
		return ok && equalLists(ea.Exprs, eb.Exprs)
	case *Or:
		eb, ok := b.(*Or)
		return ok && equalLists(ea.Exprs, eb.Exprs)
	case *Not:
		eb, ok := b.(*Not)
		return ok && Equal(ea.Expr, eb.Expr)
	case *Tuple:
		eb, ok := b.(*Tuple)
		return ok && equalLists(ea.Exprs, eb.Exprs)
	}
	return false
}

func equalLists(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
