package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// Contract validates requests against an OpenAPI document.
type Contract struct {
	doc    *openapi3.T
	router routers.Router
}

// LoadContract parses and validates an OpenAPI document.
func LoadContract(ctx context.Context, data []byte) (*Contract, error) {
	if len(data) == 0 {
		return nil, errors.New("server: contract document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("server: load contract: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("server: contract declares no paths")
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("server: invalid contract: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("server: contract router: %w", err)
	}
	return &Contract{doc: doc, router: router}, nil
}

// Document returns the parsed document.
func (c *Contract) Document() *openapi3.T { return c.doc }

// OperationIDs lists every operation declared by the document.
func (c *Contract) OperationIDs() []string {
	var ids []string
	for _, item := range c.doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			ids = append(ids, op.OperationID)
		}
	}
	return ids
}

// Validate checks r against the operation it matches. Requests for paths the
// document does not declare pass through.
func (c *Contract) Validate(r *http.Request) error {
	route, params, err := c.router.FindRoute(r)
	if err != nil {
		return nil
	}
	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: false},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		return StatusError{Code: http.StatusBadRequest, Err: err}
	}
	return nil
}

func (s *Server) validateRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.contract != nil {
			if err := s.contract.Validate(r); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
