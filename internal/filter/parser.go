package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-propql/ast"
	"github.com/shopspring/decimal"
)

// ParseExpr parses an embedded expression string (the hogql property type)
// into an expression tree. The grammar covers dotted field chains, string
// and numeric literals, booleans, null, comparison operators, regex
// operators, like/ilike/in with optional not, boolean and/or/not, function
// calls, parentheses, and tuples.
func ParseExpr(input string) (ast.Expr, error) {
	tokens, err := newTokenizer(input).tokenizeAll()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().typ != tokenEOF {
		return nil, p.errorf("unexpected token %q", p.current().value)
	}
	return expr, nil
}

type parser struct {
	tokens []*token
	pos    int
}

func (p *parser) current() *token {
	if p.pos >= len(p.tokens) {
		return &token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() *token {
	if p.pos+1 >= len(p.tokens) {
		return &token{typ: tokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *parser) advance() *token {
	tok := p.current()
	p.pos++
	return tok
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: p.current().pos}
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	exprs := []ast.Expr{left}
	for p.current().typ == tokenLogical && p.current().value == "or" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return &ast.Or{Exprs: exprs}, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	exprs := []ast.Expr{left}
	for p.current().typ == tokenLogical && p.current().value == "and" {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return &ast.And{Exprs: exprs}, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.current().typ == tokenNot {
		p.advance()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: expr}, nil
	}
	return p.parseComparison()
}

// parseComparison parses a primary followed by an optional comparison
// operator and right-hand side. "not like", "not ilike", and "not in"
// are recognized as negated operators here, before prefix-not applies.
func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	op, ok := p.comparisonOperator()
	if !ok {
		return left, nil
	}
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &ast.Compare{Op: op, Left: left, Right: right}, nil
}

// comparisonOperator consumes the operator tokens at the cursor, if any.
func (p *parser) comparisonOperator() (ast.CompareOp, bool) {
	tok := p.current()
	switch tok.typ {
	case tokenOperator:
		var op ast.CompareOp
		switch tok.value {
		case "=", "==":
			op = ast.OpEq
		case "!=":
			op = ast.OpNotEq
		case "<":
			op = ast.OpLt
		case "<=":
			op = ast.OpLtEq
		case ">":
			op = ast.OpGt
		case ">=":
			op = ast.OpGtEq
		case "=~":
			op = ast.OpRegex
		case "!~":
			op = ast.OpNotRegex
		case "=~*":
			op = ast.OpIRegex
		case "!~*":
			op = ast.OpNotIRegex
		default:
			return "", false
		}
		p.advance()
		return op, true

	case tokenKeyword:
		var op ast.CompareOp
		switch tok.value {
		case "like":
			op = ast.OpLike
		case "ilike":
			op = ast.OpILike
		case "in":
			op = ast.OpIn
		default:
			return "", false
		}
		p.advance()
		return op, true

	case tokenNot:
		if p.peek().typ != tokenKeyword {
			return "", false
		}
		var op ast.CompareOp
		switch p.peek().value {
		case "like":
			op = ast.OpNotLike
		case "ilike":
			op = ast.OpNotILike
		case "in":
			op = ast.OpNotIn
		default:
			return "", false
		}
		p.advance()
		p.advance()
		return op, true
	}
	return "", false
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.typ {
	case tokenString:
		p.advance()
		return &ast.Constant{Value: tok.value}, nil
	case tokenNumber:
		p.advance()
		return parseNumber(tok)
	case tokenBoolean:
		p.advance()
		return &ast.Constant{Value: tok.value == "true"}, nil
	case tokenNull:
		p.advance()
		return &ast.Constant{Value: nil}, nil
	case tokenLParen:
		return p.parseParenthesized()
	case tokenIdentifier:
		if p.peek().typ == tokenLParen {
			return p.parseCall()
		}
		return p.parseFieldChain()
	}
	return nil, p.errorf("unexpected token %q", tok.value)
}

// parseParenthesized parses a grouped expression or, with commas, a tuple.
func (p *parser) parseParenthesized() (ast.Expr, error) {
	p.advance()
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().typ == tokenRParen {
		p.advance()
		return first, nil
	}

	exprs := []ast.Expr{first}
	for p.current().typ == tokenComma {
		p.advance()
		next, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	if p.current().typ != tokenRParen {
		return nil, p.errorf("expected closing parenthesis")
	}
	p.advance()
	return &ast.Tuple{Exprs: exprs}, nil
}

func (p *parser) parseCall() (ast.Expr, error) {
	name := p.advance().value
	p.advance() // consume '('

	var args []ast.Expr
	if p.current().typ != tokenRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().typ != tokenComma {
				break
			}
			p.advance()
		}
	}
	if p.current().typ != tokenRParen {
		return nil, p.errorf("expected closing parenthesis in call to %q", name)
	}
	p.advance()
	return &ast.Call{Name: name, Args: args}, nil
}

func (p *parser) parseFieldChain() (ast.Expr, error) {
	chain := []string{p.advance().value}
	for p.current().typ == tokenDot {
		p.advance()
		next := p.current()
		if next.typ != tokenIdentifier && next.typ != tokenKeyword && next.typ != tokenBoolean {
			return nil, p.errorf("expected identifier after '.'")
		}
		p.advance()
		chain = append(chain, next.value)
	}
	return &ast.Field{Chain: chain}, nil
}

// parseNumber parses a numeric literal. Plain integers parse as int64;
// integers that overflow int64 fall back to decimal so no precision is
// lost; anything with a fraction or exponent parses as float64.
func parseNumber(tok *token) (ast.Expr, error) {
	if !strings.ContainsAny(tok.value, ".eE") {
		if i, err := strconv.ParseInt(tok.value, 10, 64); err == nil {
			return &ast.Constant{Value: i}, nil
		}
		d, err := decimal.NewFromString(tok.value)
		if err != nil {
			return nil, &ParseError{Message: "invalid numeric literal " + strconv.Quote(tok.value), Pos: tok.pos}
		}
		return &ast.Constant{Value: d}, nil
	}
	f, err := strconv.ParseFloat(tok.value, 64)
	if err != nil {
		return nil, &ParseError{Message: "invalid numeric literal " + strconv.Quote(tok.value), Pos: tok.pos}
	}
	return &ast.Constant{Value: f}, nil
}
