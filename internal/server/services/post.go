package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/media"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/dmitrijs2005/threads/internal/server/repositories/repomanager"
)

// PostService implements the post store operations and feed composition.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Store
	logger      logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, store media.Store, logger logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		media:       store,
		logger:      logger.With("module", "posts"),
	}
}

// Create stores a new post by postedBy. img, when set, is an inline image
// payload that is uploaded first; the post keeps only its URL.
func (s *PostService) Create(ctx context.Context, actor *models.User, postedBy, text, img string) (*models.Post, error) {
	if postedBy == "" || strings.TrimSpace(text) == "" {
		return nil, common.Errorf(common.ErrInvalidRequest, "PostedBy and text fields are required")
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, postedBy); err != nil {
		return nil, userNotFound(err)
	}
	if postedBy != actor.ID {
		return nil, common.Errorf(common.ErrForbidden, "Unauthorized to create post")
	}
	if err := checkTextLength(text); err != nil {
		return nil, err
	}

	post := &models.Post{PostedBy: postedBy, Text: text}
	if img != "" {
		url, err := s.media.Upload(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("error uploading image: %w", err)
		}
		post.Img = url
	}

	post, err := s.repomanager.Posts(s.db).Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}
	return post, nil
}

// Delete removes a post owned by actor together with its image.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.PostedBy != actor.ID {
		return common.Errorf(common.ErrForbidden, "Unauthorized to delete post")
	}

	if post.Img != "" {
		if err := s.media.Destroy(ctx, post.Img); err != nil {
			return fmt.Errorf("error removing image: %w", err)
		}
	}

	if err := s.repomanager.Posts(s.db).Delete(ctx, id); err != nil {
		return postNotFound(err)
	}
	return nil
}

// LikeUnlike toggles actor's like on the post.
func (s *PostService) LikeUnlike(ctx context.Context, actor *models.User, id string) (models.LikeState, error) {
	state, err := s.repomanager.Posts(s.db).ToggleLike(ctx, id, actor.ID)
	if err != nil {
		return models.Unliked, postNotFound(err)
	}
	return state, nil
}

// Reply appends a reply by actor, stamped with actor's current username and
// profile picture.
func (s *PostService) Reply(ctx context.Context, actor *models.User, postID, text string) (*models.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.Errorf(common.ErrInvalidRequest, "Text field is required")
	}
	if err := checkTextLength(text); err != nil {
		return nil, err
	}

	reply := &models.Reply{
		UserID:         actor.ID,
		Text:           text,
		UserProfilePic: actor.ProfilePic,
		Username:       actor.Username,
	}
	if err := s.repomanager.Posts(s.db).AppendReply(ctx, postID, reply); err != nil {
		return nil, postNotFound(err)
	}
	return reply, nil
}

// Feed returns the posts of everyone actor follows, newest first.
func (s *PostService) Feed(ctx context.Context, actor *models.User) ([]*models.Post, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, actor.ID)
	if err != nil {
		return nil, userNotFound(err)
	}

	posts, err := s.repomanager.Posts(s.db).ListByAuthors(ctx, user.Following)
	if err != nil {
		return nil, fmt.Errorf("error loading feed: %w", err)
	}
	return posts, nil
}

// ByUser returns the posts of username, newest first.
func (s *PostService) ByUser(ctx context.Context, username string) ([]*models.Post, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		return nil, userNotFound(err)
	}

	posts, err := s.repomanager.Posts(s.db).ListByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading posts: %w", err)
	}
	return posts, nil
}

func checkTextLength(text string) error {
	if utf8.RuneCountInString(text) > models.MaxTextLength {
		return common.Errorf(common.ErrInvalidRequest, "Text must be less than %d characters", models.MaxTextLength)
	}
	return nil
}

func postNotFound(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.Errorf(common.ErrNotFound, "Post not found")
	}
	return err
}
