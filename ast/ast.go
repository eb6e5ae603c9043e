// Package ast defines the SQL expression tree produced by the filter
// compiler. Nodes are plain values: construct them with struct literals,
// render them with Print. All scope and catalog resolution happens before
// a node is built, so the tree itself never consults external state.
package ast

// Expr is a node in the expression tree.
type Expr interface {
	expr()
}

// Constant is a literal value: string, bool, int/int64/float64,
// decimal.Decimal, time.Time, nil, or a []any list of those.
type Constant struct {
	Value any
}

func (e *Constant) expr() {}

// Field is a column or property path reference,
// e.g. {Chain: []string{"person", "properties", "email"}}.
type Field struct {
	Chain []string
}

func (e *Field) expr() {}

// Compare is a binary comparison (e.g. Price > 100).
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (e *Compare) expr() {}

// Call is a backend function invocation (e.g. match(x, 'pattern')).
type Call struct {
	Name string
	Args []Expr
}

func (e *Call) expr() {}

// And is a conjunction over one or more expressions.
// Constructing an empty And is a programmer error; Print rejects it.
type And struct {
	Exprs []Expr
}

func (e *And) expr() {}

// Or is a disjunction over one or more expressions.
// Constructing an empty Or is a programmer error; Print rejects it.
type Or struct {
	Exprs []Expr
}

func (e *Or) expr() {}

// Not negates an expression.
type Not struct {
	Expr Expr
}

func (e *Not) expr() {}

// Tuple is a literal tuple of expressions.
type Tuple struct {
	Exprs []Expr
}

func (e *Tuple) expr() {}

// CompareOp identifies a comparison operator.
type CompareOp string

// Comparison operators understood by Compare nodes.
const (
	OpEq          CompareOp = "=="
	OpNotEq       CompareOp = "!="
	OpLt          CompareOp = "<"
	OpLtEq        CompareOp = "<="
	OpGt          CompareOp = ">"
	OpGtEq        CompareOp = ">="
	OpLike        CompareOp = "like"
	OpNotLike     CompareOp = "not like"
	OpILike       CompareOp = "ilike"
	OpNotILike    CompareOp = "not ilike"
	OpIn          CompareOp = "in"
	OpNotIn       CompareOp = "not in"
	OpInCohort    CompareOp = "in cohort"
	OpNotInCohort CompareOp = "not in cohort"
	OpRegex       CompareOp = "=~"
	OpNotRegex    CompareOp = "!~"
	OpIRegex      CompareOp = "=~*"
	OpNotIRegex   CompareOp = "!~*"
)

// IsNegative reports whether the operator asserts non-membership or
// non-equality. Negative operators combine multi-value expansions with
// And instead of Or.
func (op CompareOp) IsNegative() bool {
	switch op {
	case OpNotEq, OpNotLike, OpNotILike, OpNotIn, OpNotInCohort, OpNotRegex, OpNotIRegex:
		return true
	default:
		return false
	}
}

// Negate returns the operator with inverted polarity.
func (op CompareOp) Negate() CompareOp {
	switch op {
	case OpEq:
		return OpNotEq
	case OpNotEq:
		return OpEq
	case OpLt:
		return OpGtEq
	case OpLtEq:
		return OpGt
	case OpGt:
		return OpLtEq
	case OpGtEq:
		return OpLt
	case OpLike:
		return OpNotLike
	case OpNotLike:
		return OpLike
	case OpILike:
		return OpNotILike
	case OpNotILike:
		return OpILike
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	case OpInCohort:
		return OpNotInCohort
	case OpNotInCohort:
		return OpInCohort
	case OpRegex:
		return OpNotRegex
	case OpNotRegex:
		return OpRegex
	case OpIRegex:
		return OpNotIRegex
	case OpNotIRegex:
		return OpIRegex
	}
	return op
}

// NewAnd returns the conjunction of exprs, collapsing the degenerate
// cases: no expressions yields Constant(true), a single expression is
// returned unwrapped, and nested And nodes are flattened.
func NewAnd(exprs ...Expr) Expr {
	flat := flatten[*And](exprs, func(e *And) []Expr { return e.Exprs })
	switch len(flat) {
	case 0:
		return &Constant{Value: true}
	case 1:
		return flat[0]
	}
	return &And{Exprs: flat}
}

// NewOr returns the disjunction of exprs with the same collapsing rules
// as NewAnd.
func NewOr(exprs ...Expr) Expr {
	flat := flatten[*Or](exprs, func(e *Or) []Expr { return e.Exprs })
	switch len(flat) {
	case 0:
		return &Constant{Value: true}
	case 1:
		return flat[0]
	}
	return &Or{Exprs: flat}
}

func flatten[T Expr](exprs []Expr, children func(T) []Expr) []Expr {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if same, ok := e.(T); ok {
			out = append(out, children(same)...)
			continue
		}
		out = append(out, e)
	}
	return out
}
