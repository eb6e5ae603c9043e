package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenType classifies a token in an embedded expression string.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenString
	tokenNumber
	tokenBoolean
	tokenNull
	tokenOperator
	tokenLogical
	tokenNot
	tokenKeyword
	tokenLParen
	tokenRParen
	tokenComma
	tokenDot
)

// token is a single token with its byte position in the input.
type token struct {
	typ   tokenType
	value string
	pos   int
}

// tokenizer splits an embedded expression string into tokens. Positions
// are byte offsets; the current character is decoded as a rune so
// multi-byte UTF-8 in literals and identifiers survives intact.
type tokenizer struct {
	input string
	pos   int
	width int
	ch    rune
}

func newTokenizer(input string) *tokenizer {
	t := &tokenizer{input: input}
	t.ch, t.width = decodeRuneAt(input, 0)
	return t
}

func decodeRuneAt(s string, pos int) (rune, int) {
	if pos >= len(s) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s[pos:])
}

func (t *tokenizer) advance() {
	t.pos += t.width
	t.ch, t.width = decodeRuneAt(t.input, t.pos)
}

func (t *tokenizer) peek() rune {
	r, _ := decodeRuneAt(t.input, t.pos+t.width)
	return r
}

func (t *tokenizer) skipWhitespace() {
	for t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r' {
		t.advance()
	}
}

// readString reads a quoted string literal. Both single and double quotes
// are accepted; a backslash escapes the quote character.
func (t *tokenizer) readString() string {
	quote := t.ch
	t.advance()

	var result strings.Builder
	for t.ch != 0 && t.ch != quote {
		if t.ch == '\\' && (t.peek() == quote || t.peek() == '\\') {
			t.advance()
		}
		result.WriteRune(t.ch)
		t.advance()
	}
	if t.ch == quote {
		t.advance()
	}
	return result.String()
}

func (t *tokenizer) readNumber() string {
	var result strings.Builder

	if t.ch == '-' {
		result.WriteRune(t.ch)
		t.advance()
	}
	for unicode.IsDigit(t.ch) {
		result.WriteRune(t.ch)
		t.advance()
	}
	if t.ch == '.' && unicode.IsDigit(t.peek()) {
		result.WriteRune(t.ch)
		t.advance()
		for unicode.IsDigit(t.ch) {
			result.WriteRune(t.ch)
			t.advance()
		}
	}
	if t.ch == 'e' || t.ch == 'E' {
		result.WriteRune(t.ch)
		t.advance()
		if t.ch == '+' || t.ch == '-' {
			result.WriteRune(t.ch)
			t.advance()
		}
		for unicode.IsDigit(t.ch) {
			result.WriteRune(t.ch)
			t.advance()
		}
	}
	return result.String()
}

// readIdentifier reads an identifier. Property keys start with "$" more
// often than not, so "$" is an identifier character here.
func (t *tokenizer) readIdentifier() string {
	var result strings.Builder
	for t.ch != 0 && (unicode.IsLetter(t.ch) || unicode.IsDigit(t.ch) || t.ch == '_' || t.ch == '$') {
		result.WriteRune(t.ch)
		t.advance()
	}
	return result.String()
}

func (t *tokenizer) nextToken() (*token, error) {
	t.skipWhitespace()

	if t.ch == 0 {
		return &token{typ: tokenEOF, pos: t.pos}, nil
	}
	pos := t.pos

	if t.ch == '\'' || t.ch == '"' {
		return &token{typ: tokenString, value: t.readString(), pos: pos}, nil
	}
	if unicode.IsDigit(t.ch) || (t.ch == '-' && unicode.IsDigit(t.peek())) {
		return &token{typ: tokenNumber, value: t.readNumber(), pos: pos}, nil
	}
	if tok := t.tokenizeSymbol(pos); tok != nil {
		return tok, nil
	}
	if unicode.IsLetter(t.ch) || t.ch == '_' || t.ch == '$' {
		value := t.readIdentifier()
		return classifyWord(value, pos), nil
	}
	return nil, &ParseError{Message: "unexpected character '" + string(t.ch) + "'", Pos: pos}
}

// tokenizeSymbol handles punctuation and symbolic comparison operators,
// longest match first.
func (t *tokenizer) tokenizeSymbol(pos int) *token {
	switch t.ch {
	case '(':
		t.advance()
		return &token{typ: tokenLParen, value: "(", pos: pos}
	case ')':
		t.advance()
		return &token{typ: tokenRParen, value: ")", pos: pos}
	case ',':
		t.advance()
		return &token{typ: tokenComma, value: ",", pos: pos}
	case '.':
		t.advance()
		return &token{typ: tokenDot, value: ".", pos: pos}
	case '=':
		t.advance()
		if t.ch == '=' {
			t.advance()
			return &token{typ: tokenOperator, value: "==", pos: pos}
		}
		if t.ch == '~' {
			t.advance()
			if t.ch == '*' {
				t.advance()
				return &token{typ: tokenOperator, value: "=~*", pos: pos}
			}
			return &token{typ: tokenOperator, value: "=~", pos: pos}
		}
		return &token{typ: tokenOperator, value: "=", pos: pos}
	case '!':
		t.advance()
		if t.ch == '=' {
			t.advance()
			return &token{typ: tokenOperator, value: "!=", pos: pos}
		}
		if t.ch == '~' {
			t.advance()
			if t.ch == '*' {
				t.advance()
				return &token{typ: tokenOperator, value: "!~*", pos: pos}
			}
			return &token{typ: tokenOperator, value: "!~", pos: pos}
		}
		return &token{typ: tokenOperator, value: "!", pos: pos}
	case '<':
		t.advance()
		if t.ch == '=' {
			t.advance()
			return &token{typ: tokenOperator, value: "<=", pos: pos}
		}
		if t.ch == '>' {
			t.advance()
			return &token{typ: tokenOperator, value: "!=", pos: pos}
		}
		return &token{typ: tokenOperator, value: "<", pos: pos}
	case '>':
		t.advance()
		if t.ch == '=' {
			t.advance()
			return &token{typ: tokenOperator, value: ">=", pos: pos}
		}
		return &token{typ: tokenOperator, value: ">", pos: pos}
	}
	return nil
}

// classifyWord turns a bare word into its keyword token, or leaves it an
// identifier. Keyword matching is case-insensitive; identifiers keep
// their original casing.
func classifyWord(value string, pos int) *token {
	switch strings.ToLower(value) {
	case "and":
		return &token{typ: tokenLogical, value: "and", pos: pos}
	case "or":
		return &token{typ: tokenLogical, value: "or", pos: pos}
	case "not":
		return &token{typ: tokenNot, value: "not", pos: pos}
	case "true", "false":
		return &token{typ: tokenBoolean, value: strings.ToLower(value), pos: pos}
	case "null":
		return &token{typ: tokenNull, value: "null", pos: pos}
	case "like", "ilike", "in":
		return &token{typ: tokenKeyword, value: strings.ToLower(value), pos: pos}
	}
	return &token{typ: tokenIdentifier, value: value, pos: pos}
}

// tokenizeAll returns all tokens including the trailing EOF.
func (t *tokenizer) tokenizeAll() ([]*token, error) {
	var tokens []*token
	for {
		tok, err := t.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokenEOF {
			return tokens, nil
		}
	}
}
