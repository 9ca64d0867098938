package api

import (
	"net/http"
	"strings"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/fault"
	"github.com/thisisjab/reelbox/querier"
)

type searchMediaRequest struct {
	Query     string  `json:"query"`
	UserID    int64   `json:"user_id"`
	MediaType *string `json:"media_type"`
	Limit     int     `json:"limit"`
}

func (req searchMediaRequest) toSearchRequest() (querier.SearchRequest, error) {
	fields := fault.FieldErrorsMetadata{}

	if req.UserID <= 0 {
		fields.Add("user_id", "Must be a positive integer.")
	}

	if req.Limit < 0 {
		fields.Add("limit", "Cannot be negative.")
	}

	var mediaType *entity.MediaType
	if req.MediaType != nil {
		mt, ok := entity.ParseMediaType(strings.ToLower(*req.MediaType))
		if !ok {
			fields.Add("media_type", `Must be "movie" or "series".`)
		} else {
			mediaType = &mt
		}
	}

	if len(fields) > 0 {
		return querier.SearchRequest{}, fault.BadInput("Invalid search request.", fields)
	}

	return querier.SearchRequest{
		Query:     req.Query,
		UserID:    req.UserID,
		MediaType: mediaType,
		Limit:     req.Limit,
	}, nil
}

// searchMediaHandler runs a search query over the user's catalog. A query that
// does not compile is still a successful request: the response carries
// query_valid false and the diagnostics.
func (s *server) searchMediaHandler(w http.ResponseWriter, r *http.Request) {
	var body searchMediaRequest
	if s.returnOnError(w, r, s.readJson(w, r, &body)) {
		return
	}

	req, err := body.toSearchRequest()
	if s.returnOnError(w, r, err) {
		return
	}

	resp, err := s.services.querier.Search(r.Context(), req)
	if s.returnOnError(w, r, err) {
		return
	}

	res := apiResponse{
		Success: true,
		Data: map[string]any{
			"media":       resp.Media,
			"query_valid": resp.QueryValid,
		},
	}

	if len(resp.Diagnostics) > 0 {
		res.Metadata = map[string]any{"diagnostics": resp.Diagnostics}
	}

	s.writeJson(w, http.StatusOK, res, nil) //nolint:errcheck
}
