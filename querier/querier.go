package querier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/metrics"
)

type SearchRequest struct {
	Query     string
	UserID    int64
	MediaType *entity.MediaType
	Limit     int
}

// SearchResponse is the outcome of a search. A query that does not compile is
// not a failure of the search: it yields no media, QueryValid false and the
// diagnostics explaining why.
type SearchResponse struct {
	Media       []entity.Media
	QueryValid  bool
	Diagnostics []Diagnostic
}

type Querier interface {
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
}

// Searcher executes built search queries against a catalog storage.
type Searcher interface {
	SearchMedia(ctx context.Context, q BuildResult) ([]entity.Media, error)
}

// Service compiles search queries and runs them on a Searcher.
type Service struct {
	searcher Searcher
	builder  *SQLQueryBuilder
	logger   *slog.Logger
}

func NewService(logger *slog.Logger, searcher Searcher, builder *SQLQueryBuilder) *Service {
	return &Service{
		searcher: searcher,
		builder:  builder,
		logger:   logger,
	}
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	start := time.Now()
	cp, err := Compile(req.Query, Scope{UserID: req.UserID, MediaType: req.MediaType})
	metrics.CompileDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		diags := Diagnostics(err)
		if diags == nil {
			metrics.SearchesTotal.WithLabelValues("error").Inc()
			return SearchResponse{}, err
		}

		for _, d := range diags {
			metrics.QueryDiagnosticsTotal.WithLabelValues(string(d.Stage)).Inc()
			s.logger.Debug("invalid search query", "user_id", req.UserID, "stage", d.Stage, "message", d.Message)
		}
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()

		return SearchResponse{Media: []entity.Media{}, QueryValid: false, Diagnostics: diags}, nil
	}

	built, err := s.builder.Build(cp, req.Limit)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, fmt.Errorf("cannot build search query: %w", err)
	}

	media, err := s.searcher.SearchMedia(ctx, built)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResponse{}, fmt.Errorf("cannot search media: %w", err)
	}

	if media == nil {
		media = []entity.Media{}
	}

	metrics.SearchesTotal.WithLabelValues("valid").Inc()
	s.logger.Debug("search completed", "user_id", req.UserID, "primitive", cp.IsPrimitive, "results", len(media))

	return SearchResponse{Media: media, QueryValid: true}, nil
}

// Explanation shows every intermediate form of a query.
type Explanation struct {
	Segments  Segments
	Query     Query
	Predicate *CompiledPredicate
	SQL       BuildResult
}

// Explain compiles raw without running it. The returned error is a
// *CompileError when the query is invalid; the explanation is filled up to the
// stage that failed.
func (s *Service) Explain(raw string, scope Scope) (Explanation, error) {
	q := Parse(raw)
	e := Explanation{Segments: Segment(raw), Query: q}

	cp, err := compileQuery(q, scope)
	if err != nil {
		return e, err
	}
	e.Predicate = cp

	built, err := s.builder.Build(cp, 0)
	if err != nil {
		return e, fmt.Errorf("cannot build search query: %w", err)
	}
	e.SQL = built

	return e, nil
}
