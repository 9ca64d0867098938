package querier

import (
	"errors"
	"strings"
)

// Stage names the compiler step a diagnostic comes from.
type Stage string

const (
	StageLexing       Stage = "lexing"
	StageParsing      Stage = "parsing"
	StageConstruction Stage = "construction"
)

// Diagnostic is a single problem found while compiling a query.
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`

	// Position is a rune offset into the raw query, when one is known.
	Position *int `json:"position,omitempty"`
}

// CompileError carries every diagnostic of a query that failed to compile.
// Lexing reports all of its problems; parsing and construction stop at the
// first one.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = string(d.Stage) + ": " + d.Message
	}
	return "invalid query: " + strings.Join(msgs, "; ")
}

// Diagnostics returns the query diagnostics in err, or nil if err is not a
// *CompileError.
func Diagnostics(err error) []Diagnostic {
	var cerr *CompileError
	if errors.As(err, &cerr) {
		return cerr.Diagnostics
	}
	return nil
}

// Compile parses raw and constructs its predicate for the given scope. Any
// failure is returned as a *CompileError.
func Compile(raw string, scope Scope) (*CompiledPredicate, error) {
	return compileQuery(Parse(raw), scope)
}

func compileQuery(q Query, scope Scope) (*CompiledPredicate, error) {
	if !q.Valid() {
		return nil, queryError(q)
	}

	cp, err := Construct(q, scope)
	if err != nil {
		return nil, &CompileError{Diagnostics: []Diagnostic{{Stage: StageConstruction, Message: err.Error()}}}
	}

	return cp, nil
}

func queryError(q Query) *CompileError {
	var diags []Diagnostic

	for _, e := range q.LexingErrors {
		diags = append(diags, Diagnostic{Stage: StageLexing, Message: e.Message, Position: &e.Pos})
	}

	for _, e := range q.ParsingErrors {
		diags = append(diags, Diagnostic{Stage: StageParsing, Message: e.Message, Position: &e.Pos})
	}

	return &CompileError{Diagnostics: diags}
}
