package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Printing errors.
var (
	// ErrEmptyBoolean is returned when an And or Or node has no children.
	// Such nodes are invalid and must be collapsed by the caller before
	// construction (NewAnd/NewOr do this).
	ErrEmptyBoolean = errors.New("empty boolean expression")

	// ErrNilExpression is returned when a nil node is reached while printing.
	ErrNilExpression = errors.New("nil expression")

	// ErrEmptyFieldChain is returned for a Field with no chain elements.
	ErrEmptyFieldChain = errors.New("field has an empty chain")
)

// Printer renders an expression tree into ClickHouse SQL text.
// The zero value is ready to use and formats time constants in UTC.
type Printer struct {
	// Location is the timezone used to format time.Time constants.
	Location *time.Location
}

// Print renders expr as ClickHouse SQL text using default settings.
func Print(expr Expr) (string, error) {
	var p Printer
	return p.Print(expr)
}

// Print renders expr as ClickHouse SQL text.
func (p *Printer) Print(expr Expr) (string, error) {
	var sb strings.Builder
	if err := p.print(&sb, expr); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Printer) print(sb *strings.Builder, expr Expr) error {
	switch e := expr.(type) {
	case nil:
		return ErrNilExpression
	case *Constant:
		return p.printConstant(sb, e.Value)
	case *Field:
		return p.printField(sb, e)
	case *Compare:
		return p.printCompare(sb, e)
	case *Call:
		return p.printCall(sb, e)
	case *And:
		return p.printJoined(sb, e.Exprs, " AND ")
	case *Or:
		return p.printJoined(sb, e.Exprs, " OR ")
	case *Not:
		sb.WriteString("NOT (")
		if err := p.print(sb, e.Expr); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case *Tuple:
		return p.printTuple(sb, e)
	}
	return fmt.Errorf("unsupported expression node %T", expr)
}

func (p *Printer) printJoined(sb *strings.Builder, exprs []Expr, sep string) error {
	if len(exprs) == 0 {
		return ErrEmptyBoolean
	}
	sb.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := p.print(sb, e); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func (p *Printer) printTuple(sb *strings.Builder, t *Tuple) error {
	if len(t.Exprs) == 0 {
		sb.WriteString("tuple()")
		return nil
	}
	sb.WriteString("(")
	for i, e := range t.Exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := p.print(sb, e); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func (p *Printer) printCall(sb *strings.Builder, c *Call) error {
	sb.WriteString(c.Name)
	sb.WriteString("(")
	for i, arg := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := p.print(sb, arg); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func (p *Printer) printField(sb *strings.Builder, f *Field) error {
	if len(f.Chain) == 0 {
		return ErrEmptyFieldChain
	}
	for i, part := range f.Chain {
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(quoteIdentifier(part))
	}
	return nil
}

func (p *Printer) printCompare(sb *strings.Builder, c *Compare) error {
	if c.Left == nil || c.Right == nil {
		return ErrNilExpression
	}

	// NULL comparisons render as isNull/isNotNull so the result stays a
	// plain boolean instead of NULL.
	if isNullConstant(c.Right) {
		switch c.Op {
		case OpEq:
			return p.printWrapped(sb, "isNull", c.Left)
		case OpNotEq:
			return p.printWrapped(sb, "isNotNull", c.Left)
		}
	}

	switch c.Op {
	case OpEq:
		return p.printInfix(sb, c.Left, "=", c.Right)
	case OpNotEq:
		return p.printInfix(sb, c.Left, "!=", c.Right)
	case OpLt:
		return p.printInfix(sb, c.Left, "<", c.Right)
	case OpLtEq:
		return p.printInfix(sb, c.Left, "<=", c.Right)
	case OpGt:
		return p.printInfix(sb, c.Left, ">", c.Right)
	case OpGtEq:
		return p.printInfix(sb, c.Left, ">=", c.Right)
	case OpLike:
		return p.printInfix(sb, c.Left, "LIKE", c.Right)
	case OpNotLike:
		return p.printInfix(sb, c.Left, "NOT LIKE", c.Right)
	case OpILike:
		return p.printInfix(sb, c.Left, "ILIKE", c.Right)
	case OpNotILike:
		return p.printInfix(sb, c.Left, "NOT ILIKE", c.Right)
	case OpIn, OpNotIn:
		return p.printIn(sb, c)
	case OpInCohort:
		return p.printInfix(sb, c.Left, "IN COHORT", c.Right)
	case OpNotInCohort:
		return p.printInfix(sb, c.Left, "NOT IN COHORT", c.Right)
	case OpRegex:
		return p.printMatch(sb, c.Left, c.Right, false, false)
	case OpNotRegex:
		return p.printMatch(sb, c.Left, c.Right, false, true)
	case OpIRegex:
		return p.printMatch(sb, c.Left, c.Right, true, false)
	case OpNotIRegex:
		return p.printMatch(sb, c.Left, c.Right, true, true)
	}
	return fmt.Errorf("unsupported comparison operator %q", c.Op)
}

func (p *Printer) printInfix(sb *strings.Builder, left Expr, op string, right Expr) error {
	if err := p.print(sb, left); err != nil {
		return err
	}
	sb.WriteString(" ")
	sb.WriteString(op)
	sb.WriteString(" ")
	return p.print(sb, right)
}

func (p *Printer) printWrapped(sb *strings.Builder, name string, arg Expr) error {
	sb.WriteString(name)
	sb.WriteString("(")
	if err := p.print(sb, arg); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

// printIn renders IN / NOT IN. An empty right-hand list can never match,
// so it collapses to a constant truth value.
func (p *Printer) printIn(sb *strings.Builder, c *Compare) error {
	if emptyCollection(c.Right) {
		if c.Op == OpIn {
			sb.WriteString("1 = 0")
		} else {
			sb.WriteString("1 = 1")
		}
		return nil
	}
	op := "IN"
	if c.Op == OpNotIn {
		op = "NOT IN"
	}
	return p.printInfix(sb, c.Left, op, c.Right)
}

// printMatch renders regex comparisons via match(). Case-insensitive
// matching prefixes the pattern with the (?i) flag.
func (p *Printer) printMatch(sb *strings.Builder, left, right Expr, insensitive, negated bool) error {
	if negated {
		sb.WriteString("NOT ")
	}
	sb.WriteString("match(")
	if err := p.print(sb, left); err != nil {
		return err
	}
	sb.WriteString(", ")
	if insensitive {
		if c, ok := right.(*Constant); ok {
			if s, ok := c.Value.(string); ok {
				sb.WriteString(quoteString("(?i)" + s))
				sb.WriteString(")")
				return nil
			}
		}
		sb.WriteString("concat('(?i)', ")
		if err := p.print(sb, right); err != nil {
			return err
		}
		sb.WriteString("))")
		return nil
	}
	if err := p.print(sb, right); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

func (p *Printer) printConstant(sb *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("NULL")
	case string:
		sb.WriteString(quoteString(v))
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case int:
		sb.WriteString(strconv.Itoa(v))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case float32:
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case decimal.Decimal:
		sb.WriteString(v.String())
	case time.Time:
		loc := p.Location
		if loc == nil {
			loc = time.UTC
		}
		sb.WriteString("toDateTime(")
		sb.WriteString(quoteString(v.In(loc).Format("2006-01-02 15:04:05")))
		sb.WriteString(", ")
		sb.WriteString(quoteString(loc.String()))
		sb.WriteString(")")
	case []any:
		sb.WriteString("[")
		for i, item := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := p.printConstant(sb, item); err != nil {
				return err
			}
		}
		sb.WriteString("]")
	case []string:
		sb.WriteString("[")
		for i, item := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteString(item))
		}
		sb.WriteString("]")
	default:
		return fmt.Errorf("unsupported constant type %T", value)
	}
	return nil
}

func isNullConstant(expr Expr) bool {
	c, ok := expr.(*Constant)
	return ok && c.Value == nil
}

func emptyCollection(expr Expr) bool {
	switch e := expr.(type) {
	case *Tuple:
		return len(e.Exprs) == 0
	case *Constant:
		if list, ok := e.Value.([]any); ok {
			return len(list) == 0
		}
	}
	return false
}

// quoteString escapes a string literal for ClickHouse (single quotes,
// backslash escapes).
func quoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteString("'")
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString("'")
	return sb.String()
}

// quoteIdentifier backquotes an identifier unless it is already a plain
// name. Property keys like "$browser" or "utm source" need quoting.
func quoteIdentifier(s string) string {
	if isPlainIdentifier(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteString("`")
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '`':
			sb.WriteString("\\`")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString("`")
	return sb.String()
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
