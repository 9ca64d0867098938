package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// LiteralKind tags the variant held by a Literal.
type LiteralKind uint8

const (
	LiteralTrue LiteralKind = iota
	LiteralFalse
	LiteralNull
	LiteralInt
	LiteralFloat
	LiteralString
)

// Literal is an untyped value written in a filter expression. Only the field
// matching Kind is meaningful. Literals are plain values and compare with ==.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

func True() Literal { return Literal{Kind: LiteralTrue} }
func False() Literal { return Literal{Kind: LiteralFalse} }
func Null() Literal { return Literal{Kind: LiteralNull} }
func Int(v int64) Literal { return Literal{Kind: LiteralInt, Int: v} }
func Float(v float64) Literal { return Literal{Kind: LiteralFloat, Float: v} }
func StringLiteral(v string) Literal { return Literal{Kind: LiteralString, Str: v} }

// IsNull reports whether the literal is the null keyword.
func (l Literal) IsNull() bool {
	return l.Kind == LiteralNull
}

// String returns the literal as it would be written in a query.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralTrue:
		return "true"
	case LiteralFalse:
		return "false"
	case LiteralNull:
		return "null"
	case LiteralInt:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Float, 'f', -1, 64)
	case LiteralString:
		return strconv.Quote(l.Str)
	default:
		return fmt.Sprintf("Literal(%d)", l.Kind)
	}
}

// ComparisonOperator defines the relation between a target and a literal.
type ComparisonOperator uint8

const (
	Equal ComparisonOperator = iota
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

func (op ComparisonOperator) String() string {
	switch op {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("ComparisonOperator(%d)", op)
	}
}

// Flip mirrors the operator for when its operands swap sides: `4 < x` is
// `x > 4`. Equality operators are symmetric and returned unchanged.
func (op ComparisonOperator) Flip() ComparisonOperator {
	switch op {
	case Less:
		return Greater
	case LessEqual:
		return GreaterEqual
	case Greater:
		return Less
	case GreaterEqual:
		return LessEqual
	default:
		return op
	}
}

// LogicalOperator joins two expressions.
type LogicalOperator uint8

const (
	And LogicalOperator = iota
	Or
)

func (op LogicalOperator) String() string {
	if op == Or {
		return "or"
	}
	return "and"
}

// Expr is a node of the filter expression tree. The marker method keeps the
// set of node types closed to this package.
type Expr interface {
	exprNode()
	String() string
}

// Binary is `identifier operator literal`.
type Binary struct {
	Identifier string
	Operator   ComparisonOperator
	Literal    Literal
}

func (*Binary) exprNode() {}

func (b *Binary) String() string {
	return fmt.Sprintf("%s %s %s", b.Identifier, b.Operator, b.Literal)
}

// Ternary is the range form `literal operator identifier operator literal`.
type Ternary struct {
	LeftLiteral   Literal
	LeftOperator  ComparisonOperator
	Identifier    string
	RightOperator ComparisonOperator
	RightLiteral  Literal
}

func (*Ternary) exprNode() {}

func (t *Ternary) String() string {
	return fmt.Sprintf("%s %s %s %s %s", t.LeftLiteral, t.LeftOperator, t.Identifier, t.RightOperator, t.RightLiteral)
}

// Expand rewrites the range as its two target-on-the-left comparisons:
// `L1 op1 x op2 L2` is `x flip(op1) L1` and `x op2 L2`.
func (t *Ternary) Expand() (*Binary, *Binary) {
	left := &Binary{Identifier: t.Identifier, Operator: t.LeftOperator.Flip(), Literal: t.LeftLiteral}
	right := &Binary{Identifier: t.Identifier, Operator: t.RightOperator, Literal: t.RightLiteral}
	return left, right
}

// Logical combines two sub-expressions.
type Logical struct {
	Left     Expr
	Operator LogicalOperator
	Right    Expr
}

func (*Logical) exprNode() {}

func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Operator, l.Right)
}

// SortDirection is the optional direction of a sort specification.
type SortDirection uint8

const (
	// SortDefault means the direction was not written.
	SortDefault SortDirection = iota
	Ascending
	Descending
)

func (d SortDirection) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return ""
	}
}

// SortTarget names the attribute results should be ordered by.
type SortTarget struct {
	Identifier string
	Direction  SortDirection
}

func (s SortTarget) String() string {
	if s.Direction == SortDefault {
		return s.Identifier
	}
	return strings.Join([]string{s.Identifier, s.Direction.String()}, " ")
}
