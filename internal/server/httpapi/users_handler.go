package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/threads/internal/server/auth"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Signup(r.Context(), req.Name, req.Email, req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, sess.Token, s.users.SessionTTL(), s.cookieSecure)
	s.logger.Info(r.Context(), "Registered", "username", sess.User.Username)
	writeJSON(w, http.StatusCreated, toSessionUser(sess.User))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, sess.Token, s.users.SessionTTL(), s.cookieSecure)
	writeJSON(w, http.StatusOK, toSessionUser(sess.User))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, s.cookieSecure)
	writeMessage(w, http.StatusOK, "User logged out successfully")
}

func (s *HTTPServer) handleFollow(w http.ResponseWriter, r *http.Request) {
	followed, err := s.users.FollowUnfollow(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if followed {
		writeMessage(w, http.StatusOK, "User followed successfully")
		return
	}
	writeMessage(w, http.StatusOK, "User unfollowed successfully")
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetProfile(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicProfile(user))
}
