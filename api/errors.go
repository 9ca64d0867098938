package api

import (
	"errors"
	"net/http"

	"github.com/thisisjab/reelbox/fault"
)

// returnOnError writes the error response for a non-nil err and reports
// whether the handler should stop.
func (s *server) returnOnError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}

	s.handleError(w, r, err)
	return true
}

// handleError maps faults to client errors. Anything else is a 500.
func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var f fault.Fault
	if !errors.As(err, &f) {
		s.internalServerError(w, r, err)
		return
	}

	res := apiResponse{Success: false, Message: f.Message()}
	var status int

	switch f.Code() {
	case fault.BadInputCode:
		status = http.StatusBadRequest
		if fields, ok := f.Metadata().(fault.FieldErrorsMetadata); ok {
			status = http.StatusUnprocessableEntity
			res.Metadata = map[string]any{"fields": fields}
		} else if f.Metadata() != nil {
			res.Metadata = map[string]any{"context": f.Metadata()}
		}

	case fault.NotFoundCode:
		status = http.StatusNotFound
		if f.Metadata() != nil {
			res.Metadata = map[string]any{"context": f.Metadata()}
		}

	case fault.PermissionDeniedCode:
		status = http.StatusForbidden

	default:
		s.internalServerError(w, r, f)
		return
	}

	if res.Message == "" {
		res.Message = http.StatusText(status)
	}

	s.writeError(w, r, status, res)
}

func (s *server) logError(r *http.Request, err error) {
	s.logger.Error("internal server error", "request-id", requestID(r.Context()), "method", r.Method, "path", r.RequestURI, "remote-addr", r.RemoteAddr, "error", err)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, response apiResponse) {
	if err := s.writeJson(w, status, response, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *server) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	s.writeError(w, r, http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
}
