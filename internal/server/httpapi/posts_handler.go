package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	post, err := s.posts.Create(r.Context(), currentUser(r.Context()), req.PostedBy, req.Text, req.Img)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (s *HTTPServer) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (s *HTTPServer) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.Delete(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

func (s *HTTPServer) handleLike(w http.ResponseWriter, r *http.Request) {
	state, err := s.posts.LikeUnlike(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if state == models.Liked {
		writeMessage(w, http.StatusOK, "Post liked successfully")
		return
	}
	writeMessage(w, http.StatusOK, "Post unliked successfully")
}

func (s *HTTPServer) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.posts.Reply(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.Feed(r.Context(), currentUser(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

func (s *HTTPServer) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ByUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}
