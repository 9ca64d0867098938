package parser

import (
	"strings"
	"testing"

	"github.com/thisisjab/reelbox/querier/ast"
	"github.com/thisisjab/reelbox/querier/lexer"
)

func parse(t *testing.T, input string) (ast.Expr, error) {
	t.Helper()

	tokens, errs := lexer.Tokenize(input)
	if len(errs) != 0 {
		t.Fatalf("Tokenize(%q) returned errors: %v", input, errs)
	}

	return New(tokens).Parse()
}

func TestParseExpressions(t *testing.T) {
	tests := map[string]string{
		`stars >= 4.5`:                                `stars >= 4.5`,
		`type != "movie"`:                             `type != "movie"`,
		`watched = true`:                              `watched = true`,
		`stars = null`:                                `stars = null`,
		`stars > 1 and stars < 3 or watched = true`:   `((stars > 1 and stars < 3) or watched = true)`,
		`stars > 1 and (stars < 3 or watched = true)`: `(stars > 1 and (stars < 3 or watched = true))`,
		`stars > 1 or stars < 3 and watched = true`:   `(stars > 1 or (stars < 3 and watched = true))`,
		`stars > 1 or stars > 2 or stars > 3`:         `((stars > 1 or stars > 2) or stars > 3)`,
		`((stars > 1))`:                               `stars > 1`,
		`2 <= stars < 4`:                              `2 <= stars < 4`,
		`1 < times_watched and type = "series"`:       ``,
	}

	for input, expected := range tests {
		actual, err := parse(t, input)
		if expected == "" {
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got %v", input, actual)
			}
			continue
		}

		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", input, err)
		}

		if actual.String() != expected {
			t.Fatalf("Parse(%q)\n%s,\nwant %s", input, actual, expected)
		}
	}
}

func TestParsePrecedenceShapes(t *testing.T) {
	expr, err := parse(t, `stars > 1 and stars > 2 or stars > 3`)
	if err != nil {
		t.Fatal(err)
	}

	root, ok := expr.(*ast.Logical)
	if !ok || root.Operator != ast.Or {
		t.Fatalf("expected root OR, got %s", expr)
	}
	if left, ok := root.Left.(*ast.Logical); !ok || left.Operator != ast.And {
		t.Fatalf("expected left AND, got %s", root.Left)
	}

	expr, err = parse(t, `stars > 1 and (stars > 2 or stars > 3)`)
	if err != nil {
		t.Fatal(err)
	}

	root, ok = expr.(*ast.Logical)
	if !ok || root.Operator != ast.And {
		t.Fatalf("expected root AND, got %s", expr)
	}
	if right, ok := root.Right.(*ast.Logical); !ok || right.Operator != ast.Or {
		t.Fatalf("expected right OR, got %s", root.Right)
	}
}

func TestParseTernary(t *testing.T) {
	expr, err := parse(t, `2000 <= times_watched < 2020`)
	if err != nil {
		t.Fatal(err)
	}

	tern, ok := expr.(*ast.Ternary)
	if !ok {
		t.Fatalf("expected ternary, got %T", expr)
	}

	expected := ast.Ternary{
		LeftLiteral:   ast.Int(2000),
		LeftOperator:  ast.LessEqual,
		Identifier:    "times_watched",
		RightOperator: ast.Less,
		RightLiteral:  ast.Int(2020),
	}
	if *tern != expected {
		t.Fatalf("got %+v, want %+v", *tern, expected)
	}

	left, right := tern.Expand()
	if left.String() != "times_watched >= 2000" || right.String() != "times_watched < 2020" {
		t.Fatalf("unexpected expansion: %s / %s", left, right)
	}
}

func TestParseNullInTernaryIsNotAParseError(t *testing.T) {
	if _, err := parse(t, `null < stars < 4`); err != nil {
		t.Fatalf("expected ternary with null to parse, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	expr, err := parse(t, "   ")
	if err != nil || expr != nil {
		t.Fatalf("expected nil expression and no error, got %v, %v", expr, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		pos     int
		message string
	}{
		{`stars`, 5, "unexpected end of input, expected comparison operator"},
		{`stars >=`, 8, "unexpected end of input, expected literal"},
		{`stars 4`, 6, `unexpected token "4", expected comparison operator`},
		{`stars = type`, 8, `unexpected token "type", expected literal`},
		{`4 < 5`, 4, `unexpected token "5", expected identifier`},
		{`(stars > 4`, 10, "unexpected end of input, expected ')'"},
		{`stars > 4)`, 9, `unexpected token ")", expected 'and', 'or' or end of input`},
		{`stars > 4 stars < 5`, 10, `unexpected token "stars", expected 'and', 'or' or end of input`},
		{`and stars > 4`, 0, `unexpected token "and", expected identifier, literal or '('`},
		{`stars > 4 or`, 12, "unexpected end of input, expected identifier, literal or '('"},
		{`1 < stars`, 9, "unexpected end of input, expected comparison operator"},
	}

	for _, tt := range tests {
		_, err := parse(t, tt.input)
		if err == nil {
			t.Fatalf("Parse(%q): expected error", tt.input)
		}

		perr, ok := err.(*Error)
		if !ok {
			t.Fatalf("Parse(%q): expected *Error, got %T", tt.input, err)
		}

		if perr.Pos != tt.pos || perr.Message != tt.message {
			t.Fatalf("Parse(%q)\ngot  %d %q\nwant %d %q", tt.input, perr.Pos, perr.Message, tt.pos, tt.message)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	input := `2 <= stars < 4 and (watched = false or times_watched >= 3)`

	first, err := parse(t, input)
	if err != nil {
		t.Fatal(err)
	}
	second, err := parse(t, input)
	if err != nil {
		t.Fatal(err)
	}

	if first.String() != second.String() {
		t.Fatalf("expected identical trees, got %s and %s", first, second)
	}
}

func TestParseSort(t *testing.T) {
	tests := map[string]*ast.SortTarget{
		"":                   nil,
		"   ":                nil,
		"stars":              {Identifier: "stars"},
		"stars desc":         {Identifier: "stars", Direction: ast.Descending},
		" title   ASCENDING": {Identifier: "title", Direction: ast.Ascending},
		"times_watched Desc": {Identifier: "times_watched", Direction: ast.Descending},
		"added descending":   {Identifier: "added", Direction: ast.Descending},
	}

	for input, expected := range tests {
		actual, err := ParseSort(input)
		if err != nil {
			t.Fatalf("ParseSort(%q) returned error: %v", input, err)
		}

		if (actual == nil) != (expected == nil) || actual != nil && *actual != *expected {
			t.Fatalf("ParseSort(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseSortErrors(t *testing.T) {
	tests := map[string]int{
		"stars upward":   6,
		"stars desc now": 11,
		"4stars":         0,
		"  st-ars":       2,
	}

	for input, pos := range tests {
		_, err := ParseSort(input)
		if err == nil {
			t.Fatalf("ParseSort(%q): expected error", input)
		}

		perr := err.(*Error)
		if perr.Pos != pos {
			t.Fatalf("ParseSort(%q): expected error at %d, got %d (%s)", input, pos, perr.Pos, perr.Message)
		}
		if !strings.Contains(perr.Error(), "position") {
			t.Fatalf("ParseSort(%q): error text should carry the position: %s", input, perr)
		}
	}
}
