package querier

import (
	"fmt"
	"strings"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier/ast"
)

// Predicate is the interface that all nodes in the compiled filter tree must
// implement. It uses a private marker method to ensure only types defined in
// this package can be used as nodes, creating a controlled "sum type" behavior.
//
// The tree knows nothing about SQL. Backends translate it: SQLQueryBuilder
// emits sub-queries, Match evaluates it in memory.
type Predicate interface {
	predicateNode()
}

// AndNode represents a logical conjunction.
// It is satisfied only if all of its Children evaluate to true.
type AndNode struct {
	Children []Predicate
}

func (n AndNode) predicateNode() {}

// OrNode represents a logical disjunction.
// It is satisfied if at least one of its Children evaluates to true.
type OrNode struct {
	Children []Predicate
}

func (n OrNode) predicateNode() {}

// Target is a derived media attribute a filter can compare against.
type Target uint8

const (
	// TargetStars is the media rating.
	TargetStars Target = iota
	// TargetWatched is whether the media has at least one viewing log.
	TargetWatched
	// TargetTimesWatched is the number of viewing logs of the media.
	TargetTimesWatched
	// TargetType is the media type.
	TargetType
)

func (t Target) String() string {
	switch t {
	case TargetStars:
		return "stars"
	case TargetWatched:
		return "watched"
	case TargetTimesWatched:
		return "times_watched"
	case TargetType:
		return "type"
	default:
		return fmt.Sprintf("Target(%d)", t)
	}
}

// ComparisonNode is a leaf node in the predicate tree. It selects the media
// whose Target relates to Value through Operator.
type ComparisonNode struct {
	Target   Target
	Operator ast.ComparisonOperator

	// Value is already coerced to the target's type: float64 for stars, bool
	// for watched, int64 for times_watched and entity.MediaType for type.
	// Nil stands for null and is only used with Equal and NotEqual.
	Value any
}

func (n ComparisonNode) predicateNode() {}

// Format renders a predicate tree as text. Equal trees render identically.
func Format(p Predicate) string {
	var sb strings.Builder
	format(&sb, p)
	return sb.String()
}

func format(sb *strings.Builder, p Predicate) {
	switch n := p.(type) {
	case nil:
		sb.WriteString("<none>")
	case AndNode:
		formatChildren(sb, n.Children, " AND ")
	case OrNode:
		formatChildren(sb, n.Children, " OR ")
	case ComparisonNode:
		fmt.Fprintf(sb, "%s %s %s", n.Target, n.Operator, formatValue(n.Value))
	default:
		fmt.Fprintf(sb, "<%T>", p)
	}
}

func formatChildren(sb *strings.Builder, children []Predicate, sep string) {
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		format(sb, c)
	}
	sb.WriteByte(')')
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case entity.MediaType:
		return fmt.Sprintf("%q", string(val))
	default:
		return fmt.Sprint(val)
	}
}
