package parser

import (
	"fmt"
	"strconv"

	"github.com/thisisjab/reelbox/querier/ast"
	"github.com/thisisjab/reelbox/querier/token"
)

// Error is the first structural problem found in a token stream.
type Error struct {
	Pos     int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Parser is a recursive-descent parser for filter expressions:
//
//	expr       = and { "or" and }
//	and        = group { "and" group }
//	group      = "(" expr ")" | comparison
//	comparison = IDENT op literal | literal op IDENT op literal
//
// It stops at the first error.
type Parser struct {
	tokens    []token.Token
	pos       int
	curToken  token.Token
	peekToken token.Token
}

// New creates a parser over tokens produced by the lexer. The slice must end
// with an EOF token.
func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.tokenAt(p.pos)
	p.pos++
}

func (p *Parser) tokenAt(i int) token.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}

	var end int
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].Pos
	}
	return token.Token{Type: token.EOF, Pos: end}
}

// Parse parses the whole token stream into a single expression. An input with
// no tokens besides EOF yields a nil expression and no error.
func (p *Parser) Parse() (ast.Expr, error) {
	if p.curToken.Type == token.EOF {
		return nil, nil
	}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.EOF {
		return nil, p.unexpected("'and', 'or' or end of input")
	}

	return expr, nil
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == token.OR {
		p.nextToken()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = &ast.Logical{Left: left, Operator: ast.Or, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseGroup()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == token.AND {
		p.nextToken()

		right, err := p.parseGroup()
		if err != nil {
			return nil, err
		}

		left = &ast.Logical{Left: left, Operator: ast.And, Right: right}
	}

	return left, nil
}

func (p *Parser) parseGroup() (ast.Expr, error) {
	if p.curToken.Type != token.LPAREN {
		return p.parseComparison()
	}

	p.nextToken()

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.RPAREN {
		return nil, p.unexpected("')'")
	}

	p.nextToken()

	return expr, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	switch {
	case p.curToken.Type == token.IDENT:
		return p.parseBinary()
	case p.curToken.Type.IsLiteral():
		return p.parseTernary()
	default:
		return nil, p.unexpected("identifier, literal or '('")
	}
}

func (p *Parser) parseBinary() (ast.Expr, error) {
	ident := p.curToken.Literal
	p.nextToken()

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return &ast.Binary{Identifier: ident, Operator: op, Literal: lit}, nil
}

func (p *Parser) parseTernary() (ast.Expr, error) {
	left, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	leftOp, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.IDENT {
		return nil, p.unexpected("identifier")
	}
	ident := p.curToken.Literal
	p.nextToken()

	rightOp, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	right, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return &ast.Ternary{
		LeftLiteral:   left,
		LeftOperator:  leftOp,
		Identifier:    ident,
		RightOperator: rightOp,
		RightLiteral:  right,
	}, nil
}

var operators = map[token.TokenType]ast.ComparisonOperator{
	token.EQUAL:        ast.Equal,
	token.NOTEQUAL:     ast.NotEqual,
	token.LESS:         ast.Less,
	token.LESSEQUAL:    ast.LessEqual,
	token.GREATER:      ast.Greater,
	token.GREATEREQUAL: ast.GreaterEqual,
}

func (p *Parser) parseOperator() (ast.ComparisonOperator, error) {
	op, ok := operators[p.curToken.Type]
	if !ok {
		return 0, p.unexpected("comparison operator")
	}

	p.nextToken()

	return op, nil
}

func (p *Parser) parseLiteral() (ast.Literal, error) {
	tok := p.curToken

	var lit ast.Literal
	switch tok.Type {
	case token.TRUE:
		lit = ast.True()
	case token.FALSE:
		lit = ast.False()
	case token.NULL:
		lit = ast.Null()
	case token.STRING:
		lit = ast.StringLiteral(tok.Literal)
	case token.INT:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return ast.Literal{}, &Error{Pos: tok.Pos, Message: fmt.Sprintf("invalid integer literal %q", tok.Literal)}
		}
		lit = ast.Int(v)
	case token.FLOAT:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return ast.Literal{}, &Error{Pos: tok.Pos, Message: fmt.Sprintf("invalid float literal %q", tok.Literal)}
		}
		lit = ast.Float(v)
	default:
		return ast.Literal{}, p.unexpected("literal")
	}

	p.nextToken()

	return lit, nil
}

func (p *Parser) unexpected(expected string) *Error {
	if p.curToken.Type == token.EOF {
		return &Error{Pos: p.curToken.Pos, Message: fmt.Sprintf("unexpected end of input, expected %s", expected)}
	}

	return &Error{
		Pos:     p.curToken.Pos,
		Message: fmt.Sprintf("unexpected token %q, expected %s", p.curToken.Literal, expected),
	}
}
