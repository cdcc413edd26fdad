package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goliatone/go-formwizard/internal/service"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.spec)
}

func (s *Server) handleAdminLayout(w http.ResponseWriter, r *http.Request) {
	form, err := s.layouts.FetchAdminLayout(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (s *Server) handleFrontendLayout(w http.ResponseWriter, r *http.Request) {
	form, err := s.layouts.FetchFrontendLayout(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var form layout.Form
	if err := decodeBody(r, &form); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.layouts.SaveLayout(r.Context(), &form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var update account.FieldUpdate
	if err := decodeBody(r, &update); err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.users.UpdateFieldValue(r.Context(), update)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(r, &creds); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.users.Authenticate(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if users == nil {
		users = []account.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserExists(w http.ResponseWriter, r *http.Request) {
	exists, err := s.users.UserExists(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, existsResponse{Exists: exists})
}

func (s *Server) handleUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.UserByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
