// Package httpapi exposes the threads services as a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/dmitrijs2005/threads/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserService is the part of services.UserService the handlers use.
type UserService interface {
	Signup(ctx context.Context, name, email, username, password string) (*services.Session, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, query string) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *models.User, targetID string, upd models.ProfileUpdate) (*models.User, error)
	FollowUnfollow(ctx context.Context, actor *models.User, targetID string) (bool, error)
	SessionTTL() time.Duration
}

// PostService is the part of services.PostService the handlers use.
type PostService interface {
	Create(ctx context.Context, actor *models.User, postedBy, text, img string) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	LikeUnlike(ctx context.Context, actor *models.User, id string) (models.LikeState, error)
	Reply(ctx context.Context, actor *models.User, postID, text string) (*models.Reply, error)
	Feed(ctx context.Context, actor *models.User) ([]*models.Post, error)
	ByUser(ctx context.Context, username string) ([]*models.Post, error)
}

// Options carries the transport settings of the server.
type Options struct {
	Address      string
	SecretKey    string
	CookieSecure bool
	BodyLimit    int64
}

type HTTPServer struct {
	address      string
	users        UserService
	posts        PostService
	logger       logging.Logger
	jwtSecret    []byte
	cookieSecure bool
	bodyLimit    int64
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, ps PostService) *HTTPServer {
	return &HTTPServer{
		address:      opts.Address,
		users:        us,
		posts:        ps,
		logger:       l.With("module", "http_server"),
		jwtSecret:    []byte(opts.SecretKey),
		cookieSecure: opts.CookieSecure,
		bodyLimit:    opts.BodyLimit,
	}
}

// Router builds the route tree. Every route is served under /api; the
// /api/users and /api/posts groups keep the paths used by the web client.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/profile/{query}", s.handleGetProfile)
		r.Get("/posts/{id}", s.handleGetPost)
		r.Get("/posts/user/{username}", s.handleUserPosts)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/follow/{id}", s.handleFollow)
			r.Put("/profile/{id}", s.handleUpdateProfile)
			r.Post("/posts", s.handleCreatePost)
			r.Delete("/posts/{id}", s.handleDeletePost)
			r.Post("/posts/{id}/like", s.handleLike)
			r.Post("/posts/{id}/reply", s.handleReply)
			r.Get("/feed", s.handleFeed)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/profile/{query}", s.handleGetProfile)
			r.With(s.requireAuth).Post("/follow/{id}", s.handleFollow)
			r.With(s.requireAuth).Put("/update/{id}", s.handleUpdateProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/posts/create", s.handleCreatePost)
			r.Get("/posts/feed", s.handleFeed)
			r.Put("/posts/like/{id}", s.handleLike)
			r.Put("/posts/reply/{id}", s.handleReply)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
