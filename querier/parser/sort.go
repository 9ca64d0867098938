package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thisisjab/reelbox/querier/ast"
)

var directions = map[string]ast.SortDirection{
	"asc":        ast.Ascending,
	"ascending":  ast.Ascending,
	"desc":       ast.Descending,
	"descending": ast.Descending,
}

// ParseSort parses a sort specification: `identifier [asc|ascending|desc|descending]`.
// The direction word is case-insensitive. A blank input yields nil.
func ParseSort(input string) (*ast.SortTarget, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil, nil
	}

	ident := fields[0]
	if !isIdentifier(ident) {
		return nil, &Error{Pos: fieldPos(input, 0), Message: fmt.Sprintf("invalid sort target %q", ident)}
	}

	target := &ast.SortTarget{Identifier: ident}

	if len(fields) > 1 {
		word := fields[1]
		dir, ok := directions[strings.ToLower(word)]
		if !ok {
			return nil, &Error{
				Pos:     fieldPos(input, 1),
				Message: fmt.Sprintf("unknown sort direction %q, expected asc or desc", word),
			}
		}
		target.Direction = dir
	}

	if len(fields) > 2 {
		return nil, &Error{
			Pos:     fieldPos(input, 2),
			Message: fmt.Sprintf("unexpected %q after sort direction", fields[2]),
		}
	}

	return target, nil
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && (r == '_' || '0' <= r && r <= '9'):
		default:
			return false
		}
	}
	return s != ""
}

// fieldPos returns the rune offset of the n-th whitespace separated field.
func fieldPos(input string, n int) int {
	inField := false
	field := -1
	for i, r := range input {
		space := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !space && !inField {
			field++
			if field == n {
				return utf8.RuneCountInString(input[:i])
			}
		}
		inField = !space
	}
	return utf8.RuneCountInString(input)
}
