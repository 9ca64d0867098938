package querier

import (
	"strings"
	"unicode/utf8"

	"github.com/thisisjab/reelbox/querier/ast"
	"github.com/thisisjab/reelbox/querier/lexer"
	"github.com/thisisjab/reelbox/querier/parser"
)

const (
	// Delimiter separates the search term, the filter expression and the sort
	// specification in a raw query.
	Delimiter = " : "

	// EscapedDelimiter is how a literal Delimiter is written inside the search term.
	EscapedDelimiter = ` \: `
)

// Segments holds the three textual parts of a raw query. FilterOffset and
// SortOffset are rune offsets of the (trimmed) segments in the raw query.
type Segments struct {
	SearchTerm   string
	Filter       string
	FilterOffset int
	Sort         string
	SortOffset   int
}

// Segment splits a raw query from the right on Delimiter into at most three
// parts. With one delimiter the right-hand side is the filter expression, with
// two the last part is the sort specification. Any further delimiters stay in
// the search term, where ` \: ` is unescaped to ` : `, also when the escape
// shares its trailing space with the structural delimiter.
//
// The input is padded with a space on both sides first, so a query starting
// with ": " has an empty search term.
func Segment(raw string) Segments {
	padded := " " + raw + " "

	last := strings.LastIndex(padded, Delimiter)
	if last < 0 {
		return Segments{SearchTerm: searchTerm(padded)}
	}

	// The two delimiters may share a space, as in "term : : sort".
	prev := strings.LastIndex(padded[:last+1], Delimiter)
	if prev < 0 {
		filter, filterOffset := trimmed(padded, last+len(Delimiter), len(padded))
		return Segments{
			SearchTerm:   searchTerm(padded[:last+1]),
			Filter:       filter,
			FilterOffset: filterOffset,
		}
	}

	filter, filterOffset := trimmed(padded, prev+len(Delimiter), last)
	sort, sortOffset := trimmed(padded, last+len(Delimiter), len(padded))

	return Segments{
		SearchTerm:   searchTerm(padded[:prev+1]),
		Filter:       filter,
		FilterOffset: filterOffset,
		Sort:         sort,
		SortOffset:   sortOffset,
	}
}

// trimmed returns padded[start:end] without surrounding whitespace and the rune
// offset of its first character in the unpadded query. Empty segments have
// offset zero.
func trimmed(padded string, start, end int) (string, int) {
	if start > end {
		start = end
	}
	seg := padded[start:end]
	if strings.TrimSpace(seg) == "" {
		return "", 0
	}
	lead := len(seg) - len(strings.TrimLeft(seg, " \t\n\r"))

	// The padding space at the front is not part of the raw query.
	offset := utf8.RuneCountInString(padded[:start+lead]) - 1
	if offset < 0 {
		offset = 0
	}

	return strings.TrimSpace(seg), offset
}

func unescape(term string) string {
	return strings.ReplaceAll(term, EscapedDelimiter, Delimiter)
}

// searchTerm unescapes the text before a structural delimiter. head keeps the
// delimiter's leading space, which an escape right before it shares, as in
// `a \: : b`.
func searchTerm(head string) string {
	return strings.TrimSpace(unescape(head))
}

// Query is the result of segmenting, lexing and parsing a raw query string.
// A query with any errors must not be handed to the constructor. Error
// positions are rune offsets in the raw query.
type Query struct {
	SearchTerm string
	Expr       ast.Expr
	Sort       *ast.SortTarget

	LexingErrors  []lexer.Error
	ParsingErrors []*parser.Error
}

// Valid reports whether the query has neither lexing nor parsing errors.
func (q Query) Valid() bool {
	return len(q.LexingErrors) == 0 && len(q.ParsingErrors) == 0
}

// Parse segments raw and parses the filter expression and sort specification.
// The filter expression is only parsed when it lexed cleanly.
func Parse(raw string) Query {
	seg := Segment(raw)

	q := Query{SearchTerm: seg.SearchTerm}

	if seg.Filter != "" {
		tokens, lexErrs := lexer.Tokenize(seg.Filter)
		for _, e := range lexErrs {
			e.Pos += seg.FilterOffset
			q.LexingErrors = append(q.LexingErrors, e)
		}

		if len(lexErrs) == 0 {
			expr, err := parser.New(tokens).Parse()
			if err != nil {
				q.ParsingErrors = append(q.ParsingErrors, shift(err, seg.FilterOffset))
			}
			q.Expr = expr
		}
	}

	sort, err := parser.ParseSort(seg.Sort)
	if err != nil {
		q.ParsingErrors = append(q.ParsingErrors, shift(err, seg.SortOffset))
	}
	q.Sort = sort

	return q
}

func shift(err error, offset int) *parser.Error {
	perr := err.(*parser.Error)
	return &parser.Error{Pos: perr.Pos + offset, Message: perr.Message}
}
