package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goliatone/go-formwizard/internal/service"
	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/layoutsync"
)

// HTTPError carries its own status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError pairs an error with the status it should be reported as.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type errorBody struct {
	Error    string `json:"error"`
	Property string `json:"property,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, layoutsync.ErrInvalidLayout),
		errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrFormNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		body = errorBody{Error: vErr.Message, Property: vErr.Property}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		body.Error = http.StatusText(code)
	}
	respondJSON(w, code, body)
}
