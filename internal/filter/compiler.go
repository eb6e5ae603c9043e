package filter

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/internal/catalog"
)

// Compiler turns property filters, filter groups, and actions into ast
// expressions. It holds only read-only collaborators and is safe for
// concurrent use as long as the stores are.
type Compiler struct {
	Team   *catalog.Team
	Stores catalog.Stores

	// Logger receives a debug line for every malformed filter that was
	// collapsed to true. May be nil.
	Logger *slog.Logger

	// OnIgnored is called with the raw input and the decode error whenever
	// a malformed filter soft-falls back to true. May be nil.
	OnIgnored func(input any, err error)
}

// PropertyToExpr compiles an arbitrary filter input into an expression.
// Lists compile as an implicit AND; empty input of any shape compiles to
// the constant true; prebuilt expressions are returned as a defensive
// clone. Malformed raw input is the single soft-fallback: it compiles to
// true and is reported through Logger and OnIgnored.
func (c *Compiler) PropertyToExpr(input any, scope Scope) (ast.Expr, error) {
	in := normalizeInput(input)
	switch in.kind {
	case inputEmpty:
		return &ast.Constant{Value: true}, nil
	case inputMalformed:
		c.reportIgnored(input, in.err)
		return &ast.Constant{Value: true}, nil
	case inputPrebuilt:
		return ast.Clone(in.expr), nil
	case inputList:
		return c.compileList(in.list, scope)
	case inputGroup:
		return c.compileGroup(in.group, scope)
	case inputTyped:
		return c.compileProperty(in.prop, scope)
	}
	return nil, fmt.Errorf("unhandled input kind %d", in.kind)
}

func (c *Compiler) compileList(list []any, scope Scope) (ast.Expr, error) {
	exprs := make([]ast.Expr, len(list))
	for i, child := range list {
		expr, err := c.PropertyToExpr(child, scope)
		if err != nil {
			return nil, err
		}
		exprs[i] = expr
	}
	return ast.NewAnd(exprs...), nil
}

// compileGroup compiles an AND/OR group. NewAnd/NewOr collapse the
// zero-child group to true and unwrap a single child.
func (c *Compiler) compileGroup(group PropertyGroup, scope Scope) (ast.Expr, error) {
	exprs := make([]ast.Expr, len(group.Values))
	for i, child := range group.Values {
		expr, err := c.PropertyToExpr(child, scope)
		if err != nil {
			return nil, err
		}
		exprs[i] = expr
	}
	if group.Combinator == GroupOr {
		return ast.NewOr(exprs...), nil
	}
	return ast.NewAnd(exprs...), nil
}

func (c *Compiler) compileProperty(prop Property, scope Scope) (ast.Expr, error) {
	switch prop.Type {
	case TypeHogQL:
		return ParseExpr(prop.Key)
	case TypeCohort, TypeStaticCohort, TypePrecalculatedCohort:
		return c.compileCohort(prop, scope)
	case TypeElement:
		if scope == ScopePerson {
			return nil, notImplementedf("element property filter in scope %q", scope)
		}
		return c.compileElement(prop)
	case TypeEvent, TypeFeature, TypePerson, TypeGroup, TypeSession, TypeDataWarehouse, TypeDataWarehousePerson:
		if scope == ScopePerson && prop.Type != TypePerson {
			return nil, notImplementedf("property type %q in scope %q", prop.Type, scope)
		}
		// The sessions table carries no person or event columns, so only
		// session properties can resolve there.
		if scope == ScopeSession && prop.Type != TypeSession {
			return nil, notImplementedf("property type %q in scope %q", prop.Type, scope)
		}
		return c.compileComparison(prop, scope)
	}
	return nil, notImplementedf("property type %q", prop.Type)
}

// compileComparison resolves the field chain, expands list values, and
// dispatches the operator. Multi-value lists expand into one comparison
// per value, OR'd together, except for the negative operators where
// De Morgan flips the combinator to AND: "not any of X" is "not X1 AND
// not X2 AND ...".
func (c *Compiler) compileComparison(prop Property, scope Scope) (ast.Expr, error) {
	chain, key, err := resolveChain(prop.Type, scope, prop.GroupTypeIndex, prop.Key)
	if err != nil {
		return nil, err
	}

	if values, ok := toAnyList(prop.Value); ok {
		switch len(values) {
		case 0:
			return &ast.Constant{Value: true}, nil
		case 1:
			return c.compileScalar(prop, chain, key, values[0])
		}
		exprs := make([]ast.Expr, len(values))
		for i, value := range values {
			expr, err := c.compileScalar(prop, chain, key, value)
			if err != nil {
				return nil, err
			}
			exprs[i] = expr
		}
		if negativeOperator(prop.Operator) {
			return ast.NewAnd(exprs...), nil
		}
		return ast.NewOr(exprs...), nil
	}
	return c.compileScalar(prop, chain, key, prop.Value)
}

// negativeOperator reports whether multi-value expansion of op combines
// with AND instead of OR.
func negativeOperator(op Operator) bool {
	switch op {
	case OpIsNot, OpNotIContains, OpNotRegex:
		return true
	default:
		return false
	}
}

func (c *Compiler) compileScalar(prop Property, chain []string, key string, value any) (ast.Expr, error) {
	field := fieldRef(chain, key)

	switch prop.Operator {
	case OpIsSet:
		return &ast.Compare{Op: ast.OpNotEq, Left: field, Right: &ast.Constant{Value: nil}}, nil

	case OpIsNotSet:
		isNull := &ast.Compare{Op: ast.OpEq, Left: field, Right: &ast.Constant{Value: nil}}
		// Without a properties root there is nothing to probe with JSONHas;
		// a field that IS the root has no key to probe for. The null check
		// stands alone in both cases.
		if len(chain) == 0 || key == "" {
			return isNull, nil
		}
		root := make([]string, len(chain))
		copy(root, chain)
		missing := &ast.Not{Expr: &ast.Call{
			Name: "JSONHas",
			Args: []ast.Expr{&ast.Field{Chain: root}, &ast.Constant{Value: key}},
		}}
		return ast.NewOr(isNull, missing), nil

	case OpIContains:
		return &ast.Compare{Op: ast.OpILike, Left: field, Right: &ast.Constant{Value: "%" + stringValue(value) + "%"}}, nil
	case OpNotIContains:
		return &ast.Compare{Op: ast.OpNotILike, Left: field, Right: &ast.Constant{Value: "%" + stringValue(value) + "%"}}, nil

	case OpRegex:
		return regexCall(field, stringValue(value), false), nil
	case OpNotRegex:
		return regexCall(field, stringValue(value), true), nil
	}

	var op ast.CompareOp
	switch prop.Operator {
	case OpExact, OpIsDateExact:
		op = ast.OpEq
	case OpIsNot:
		op = ast.OpNotEq
	case OpLt, OpIsDateBefore:
		op = ast.OpLt
	case OpGt, OpIsDateAfter:
		op = ast.OpGt
	case OpLte:
		op = ast.OpLtEq
	case OpGte:
		op = ast.OpGtEq
	default:
		return nil, notImplementedf("operator %q on property %q", prop.Operator, prop.Key)
	}

	if op == ast.OpEq || op == ast.OpNotEq {
		coerced, err := c.coerceBooleanString(prop, value)
		if err != nil {
			return nil, err
		}
		value = coerced
	}
	return &ast.Compare{Op: op, Left: field, Right: &ast.Constant{Value: value}}, nil
}

// regexCall wraps a regex match in ifNull so a null field compares as
// "does not match" instead of propagating NULL through the boolean tree.
// Negation flips both the inner match and the null default.
func regexCall(field ast.Expr, pattern string, negated bool) ast.Expr {
	match := ast.Expr(&ast.Call{
		Name: "match",
		Args: []ast.Expr{
			&ast.Call{Name: "toString", Args: []ast.Expr{field}},
			&ast.Constant{Value: pattern},
		},
	})
	guard := any(false)
	if negated {
		match = &ast.Call{Name: "not", Args: []ast.Expr{match}}
		guard = true
	}
	return &ast.Call{Name: "ifNull", Args: []ast.Expr{match, &ast.Constant{Value: guard}}}
}

func (c *Compiler) compileCohort(prop Property, scope Scope) (ast.Expr, error) {
	id, err := intValue(prop.Value)
	if err != nil {
		return nil, fmt.Errorf("cohort filter value: %w", err)
	}
	if c.Stores.Cohorts == nil {
		return nil, fmt.Errorf("cohort filter requires a cohort store")
	}
	cohort, err := c.Stores.Cohorts.ByID(c.Team.ID, id)
	if err != nil {
		return nil, err
	}

	subject := "person_id"
	if scope == ScopePerson {
		subject = "id"
	}
	op := ast.OpInCohort
	if prop.Operator == OpNotIn {
		op = ast.OpNotInCohort
	}
	return &ast.Compare{
		Op:    op,
		Left:  &ast.Field{Chain: []string{subject}},
		Right: &ast.Constant{Value: cohort.ID},
	}, nil
}

// fieldRef builds a Field from a chain and key without aliasing either.
// An empty key references the chain root itself.
func fieldRef(chain []string, key string) *ast.Field {
	full := make([]string, 0, len(chain)+1)
	full = append(full, chain...)
	if key != "" {
		full = append(full, key)
	}
	return &ast.Field{Chain: full}
}

func stringValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func intValue(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON numbers decode as float64; only accept whole values so a
		// mistyped id never truncates into a different one.
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%v (%T) is not an integer", value, value)
}

func (c *Compiler) reportIgnored(input any, err error) {
	if c.Logger != nil {
		c.Logger.Debug("ignoring malformed property filter", "error", err, "input", fmt.Sprintf("%v", input))
	}
	if c.OnIgnored != nil {
		c.OnIgnored(input, err)
	}
}
