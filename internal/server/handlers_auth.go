package server

import (
	"errors"
	"net/http"

	"github.com/Ardhiffamada1/PointOfSale/internal/auth"
	"github.com/Ardhiffamada1/PointOfSale/pkg/logging"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}
	sess, user, err := s.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logging.Log(logging.Fields{Service: "pos-server", UserID: user.ID, Step: "login", Status: "ok"})
	http.SetCookie(w, &http.Cookie{Name: "pos_session", Value: sess.Token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"token": sess.Token, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.Users.Logout(r.Context(), sess.Token); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.sessions.drop(sess.Token)
	http.SetCookie(w, &http.Cookie{Name: "pos_session", Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}
