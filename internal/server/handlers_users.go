package server

import (
	"errors"
	"net/http"

	"github.com/Ardhiffamada1/PointOfSale/internal/auth"
	"github.com/Ardhiffamada1/PointOfSale/pkg/logging"
)

func userErrStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrSelfDelete):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrFieldsRequired),
		errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleCreateUser registers a new account. New accounts always start as
// cashier; an admin promotes them afterwards.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.NewUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := s.Users.CreateUser(r.Context(), in, auth.RoleCashier)
	if err != nil {
		writeError(w, userErrStatus(err), err)
		return
	}
	logging.Log(logging.Fields{Service: "pos-server", UserID: u.ID, Step: "user_create", Status: "created"})
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, userErrStatus(err), err)
		return
	}
	u, err := s.Users.SetRole(r.Context(), r.PathValue("id"), role)
	if err != nil {
		writeError(w, userErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := r.PathValue("id")
	if id == sess.UserID {
		writeError(w, userErrStatus(auth.ErrSelfDelete), auth.ErrSelfDelete)
		return
	}
	if err := s.Users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, userErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
