package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thisisjab/reelbox/querier/token"
)

// Error is a single lexical problem found while scanning a filter expression.
type Error struct {
	Pos     int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Lexer scans a filter expression. It never gives up on the first problem:
// every malformed character or literal is recorded and scanning resumes right
// after it, so one pass reports all lexical errors in the input.
type Lexer struct {
	input   []rune
	pos     int  // position of the current character in the input string
	readPos int  // position of the next character to be read
	char    rune // current character being processed
	errors  []Error
}

func New(input string) *Lexer {
	l := &Lexer{input: []rune(input)}
	l.readChar()
	return l
}

// Tokenize scans the whole input. The returned tokens always end with an EOF
// token; they are only meaningful when the returned error list is empty.
func Tokenize(input string) ([]token.Token, []Error) {
	l := New(input)

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	return tokens, l.Errors()
}

// Errors returns the lexical errors recorded so far.
func (l *Lexer) Errors() []Error {
	return l.errors
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.char = 0
	} else {
		l.char = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) errorf(pos int, format string, args ...any) {
	l.errors = append(l.errors, Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// NextToken returns the next valid token. Malformed input is recorded as an
// error and skipped.
func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()

		if tok, ok := l.scan(); ok {
			return tok
		}
	}
}

func (l *Lexer) scan() (token.Token, bool) {
	if l.atEnd() {
		return token.Token{Type: token.EOF, Literal: "", Pos: l.pos}, true
	}

	pos := l.pos
	var tok token.Token

	switch l.char {
	case '=':
		tok = token.Token{Type: token.EQUAL, Literal: "="}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LESSEQUAL, Literal: "<="}
		} else {
			tok = token.Token{Type: token.LESS, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GREATEREQUAL, Literal: ">="}
		} else {
			tok = token.Token{Type: token.GREATER, Literal: ">"}
		}
	case '!':
		if l.peekChar() != '=' {
			l.errorf(pos, "unexpected character '!', did you mean '!='")
			l.readChar()
			return token.Token{}, false
		}
		l.readChar()
		tok = token.Token{Type: token.NOTEQUAL, Literal: "!="}
	case '(':
		tok = token.Token{Type: token.LPAREN, Literal: "("}
	case ')':
		tok = token.Token{Type: token.RPAREN, Literal: ")"}
	case '"':
		return l.readQuotedString()
	default:
		if isLetter(l.char) {
			return l.readIdentifier(), true
		} else if isDigit(l.char) {
			return l.readNumber()
		}

		l.errorf(pos, "unexpected character %q", l.char)
		l.readChar()
		return token.Token{}, false
	}

	tok.Pos = pos
	l.readChar()
	return tok, true
}

func (l *Lexer) readIdentifier() token.Token {
	pos := l.pos

	for !l.atEnd() && (isLetter(l.char) || isDigit(l.char) || l.char == '_') {
		l.readChar()
	}

	literal := string(l.input[pos:l.pos])

	return token.Token{Type: lookupIdent(literal), Literal: literal, Pos: pos}
}

func lookupIdent(ident string) token.TokenType {
	if tok, ok := token.Keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return token.IDENT
}

func (l *Lexer) readNumber() (token.Token, bool) {
	pos := l.pos

	for isDigit(l.char) {
		l.readChar()
	}

	isFloat := false
	if l.char == '.' {
		if !isDigit(l.peekChar()) {
			l.errorf(pos, "malformed number %q, expected digits after '.'", string(l.input[pos:l.readPos]))
			l.readChar()
			return token.Token{}, false
		}

		isFloat = true
		l.readChar()
		for isDigit(l.char) {
			l.readChar()
		}
	}

	literal := string(l.input[pos:l.pos])

	if isFloat {
		if _, err := strconv.ParseFloat(literal, 64); err != nil {
			l.errorf(pos, "invalid float literal %q", literal)
			return token.Token{}, false
		}
		return token.Token{Type: token.FLOAT, Literal: literal, Pos: pos}, true
	}

	if _, err := strconv.ParseInt(literal, 10, 64); err != nil {
		l.errorf(pos, "invalid integer literal %q", literal)
		return token.Token{}, false
	}
	return token.Token{Type: token.INT, Literal: literal, Pos: pos}, true
}

// readQuotedString reads a string delimited by double quotes. Inside the
// string `\"` is a quote and `\\` is a backslash.
func (l *Lexer) readQuotedString() (token.Token, bool) {
	pos := l.pos

	var sb strings.Builder
	for {
		l.readChar()

		if l.atEnd() {
			l.errorf(pos, "unterminated string literal")
			return token.Token{}, false
		}

		if l.char == '\\' && (l.peekChar() == '"' || l.peekChar() == '\\') {
			l.readChar()
			sb.WriteRune(l.char)
			continue
		}

		if l.char == '"' {
			break
		}

		sb.WriteRune(l.char)
	}

	// Skip the closing quote
	l.readChar()

	return token.Token{Type: token.STRING, Literal: sb.String(), Pos: pos}, true
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && isWhitespace(l.char) {
		l.readChar()
	}
}
