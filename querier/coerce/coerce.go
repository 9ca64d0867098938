// Package coerce converts untyped filter literals into the concrete value a
// target attribute expects.
//
// Every conversion returns a pointer; nil means "no value" and is what the
// null literal converts to wherever it is accepted.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier/ast"
)

// Error reports a literal that cannot be converted to the expected kind.
type Error struct {
	Expected string
	Literal  ast.Literal
}

func (e *Error) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Literal)
}

func ptr[T any](v T) *T {
	return &v
}

func ToInt(lit ast.Literal) (*int64, error) {
	switch lit.Kind {
	case ast.LiteralTrue:
		return ptr[int64](1), nil
	case ast.LiteralFalse:
		return ptr[int64](0), nil
	case ast.LiteralNull:
		return nil, nil
	case ast.LiteralInt:
		return ptr(lit.Int), nil
	case ast.LiteralFloat:
		return ptr(truncate(lit.Float)), nil
	case ast.LiteralString:
		v, err := strconv.ParseInt(lit.Str, 10, 64)
		if err != nil {
			return nil, &Error{Expected: "integer", Literal: lit}
		}
		return &v, nil
	}
	return nil, &Error{Expected: "integer", Literal: lit}
}

// truncate converts f toward zero, saturating at the int64 bounds.
func truncate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func ToFloat(lit ast.Literal) (*float64, error) {
	switch lit.Kind {
	case ast.LiteralTrue:
		return ptr(1.0), nil
	case ast.LiteralFalse:
		return ptr(0.0), nil
	case ast.LiteralNull:
		return nil, nil
	case ast.LiteralInt:
		return ptr(float64(lit.Int)), nil
	case ast.LiteralFloat:
		return ptr(lit.Float), nil
	case ast.LiteralString:
		v, err := strconv.ParseFloat(lit.Str, 64)
		if err != nil {
			return nil, &Error{Expected: "number", Literal: lit}
		}
		return &v, nil
	}
	return nil, &Error{Expected: "number", Literal: lit}
}

func ToBool(lit ast.Literal) (*bool, error) {
	switch lit.Kind {
	case ast.LiteralTrue:
		return ptr(true), nil
	case ast.LiteralFalse:
		return ptr(false), nil
	case ast.LiteralNull:
		return nil, nil
	case ast.LiteralInt:
		return ptr(lit.Int > 0), nil
	case ast.LiteralFloat:
		return ptr(lit.Float > 0), nil
	case ast.LiteralString:
		return ptr(lit.Str != ""), nil
	}
	return nil, &Error{Expected: "boolean", Literal: lit}
}

func ToString(lit ast.Literal) (*string, error) {
	switch lit.Kind {
	case ast.LiteralNull:
		return nil, nil
	case ast.LiteralInt:
		return ptr(strconv.FormatInt(lit.Int, 10)), nil
	case ast.LiteralFloat:
		return ptr(strconv.FormatFloat(lit.Float, 'f', -1, 64)), nil
	case ast.LiteralString:
		return ptr(lit.Str), nil
	}
	return nil, &Error{Expected: "string", Literal: lit}
}

// ToMediaType accepts only the strings "movie" and "series", in any case.
// Unlike the other conversions, null is rejected.
func ToMediaType(lit ast.Literal) (entity.MediaType, error) {
	if lit.Kind == ast.LiteralString {
		if mt, ok := entity.ParseMediaType(strings.ToLower(lit.Str)); ok {
			return mt, nil
		}
	}
	return "", &Error{Expected: `media type ("movie" or "series")`, Literal: lit}
}
