package querier

import (
	"cmp"
	"strings"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier/ast"
)

// Matches reports whether m is selected by the compiled predicate: the base
// scope and the filter. It follows the same rules as the SQL backend,
// including SQL's treatment of comparisons with a missing rating.
func (cp *CompiledPredicate) Matches(m entity.Media) bool {
	if m.UserID != cp.UserID {
		return false
	}

	if cp.MediaType != nil && m.Type != *cp.MediaType {
		return false
	}

	if cp.SearchTerm != "" && !strings.HasPrefix(strings.ToLower(m.Title), strings.ToLower(cp.SearchTerm)) {
		return false
	}

	return cp.Filter == nil || Match(cp.Filter, m)
}

// Match evaluates a predicate tree against a single media item.
func Match(p Predicate, m entity.Media) bool {
	switch n := p.(type) {
	case AndNode:
		for _, c := range n.Children {
			if !Match(c, m) {
				return false
			}
		}
		return true

	case OrNode:
		for _, c := range n.Children {
			if Match(c, m) {
				return true
			}
		}
		return false

	case ComparisonNode:
		return matchComparison(n, m)

	default:
		return false
	}
}

func matchComparison(n ComparisonNode, m entity.Media) bool {
	var (
		c       int
		present = true
	)

	switch n.Target {
	case TargetStars:
		if m.Stars == nil {
			present = false
			break
		}
		if n.Value != nil {
			c = cmp.Compare(*m.Stars, n.Value.(float64))
		}
	case TargetWatched:
		// Compared as 0/1, like the SQL backend.
		if n.Value != nil {
			c = cmp.Compare(boolToInt(m.TimesWatched > 0), boolToInt(n.Value.(bool)))
		}
	case TargetTimesWatched:
		if n.Value != nil {
			c = cmp.Compare(m.TimesWatched, n.Value.(int64))
		}
	case TargetType:
		if n.Value != nil {
			c = strings.Compare(string(m.Type), string(n.Value.(entity.MediaType)))
		}
	default:
		return false
	}

	if n.Value == nil {
		switch n.Operator {
		case ast.Equal:
			return !present
		case ast.NotEqual:
			return present
		default:
			return false
		}
	}

	if !present {
		return false
	}

	switch n.Operator {
	case ast.Equal:
		return c == 0
	case ast.NotEqual:
		return c != 0
	case ast.Less:
		return c < 0
	case ast.LessEqual:
		return c <= 0
	case ast.Greater:
		return c > 0
	case ast.GreaterEqual:
		return c >= 0
	default:
		return false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
