package token

import "fmt"

const (
	EOF TokenType = iota

	// Identifiers + literals
	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	AND
	OR
	TRUE
	FALSE
	NULL

	// Delimiters
	LPAREN
	RPAREN

	// Operators
	EQUAL
	NOTEQUAL
	LESS
	LESSEQUAL
	GREATER
	GREATEREQUAL
)

type TokenType int

var names = [...]string{
	EOF:          "EOF",
	IDENT:        "IDENT",
	INT:          "INT",
	FLOAT:        "FLOAT",
	STRING:       "STRING",
	AND:          "AND",
	OR:           "OR",
	TRUE:         "TRUE",
	FALSE:        "FALSE",
	NULL:         "NULL",
	LPAREN:       "(",
	RPAREN:       ")",
	EQUAL:        "=",
	NOTEQUAL:     "!=",
	LESS:         "<",
	LESSEQUAL:    "<=",
	GREATER:      ">",
	GREATEREQUAL: ">=",
}

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsComparison reports whether the token type is one of the six comparison operators.
func (t TokenType) IsComparison() bool {
	return t >= EQUAL && t <= GREATEREQUAL
}

// IsLiteral reports whether the token type can stand for a literal value.
func (t TokenType) IsLiteral() bool {
	switch t {
	case INT, FLOAT, STRING, TRUE, FALSE, NULL:
		return true
	}
	return false
}

type Token struct {
	Type TokenType

	// Literal is the token text. For strings it is the unquoted, unescaped value.
	Literal string

	// Pos is the rune offset of the first character of the token.
	Pos int
}

// Keywords maps reserved words to their token types. Lookups are done on the
// lower-cased word.
var Keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
}
