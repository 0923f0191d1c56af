package posts

import (
	"context"

	"github.com/dmitrijs2005/threads/internal/server/models"
)

// Repository is the post store. Likes are a set and replies an append-only
// list; both are changed with single-statement updates on one post.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Delete(ctx context.Context, id string) error

	// ToggleLike flips userID's membership in the post's like set and
	// reports the resulting state.
	ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error)
	AppendReply(ctx context.Context, postID string, reply *models.Reply) error

	// ListByAuthors returns posts by any of authorIDs, newest first.
	ListByAuthors(ctx context.Context, authorIDs []string) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)

	// UpdateReplyAuthor rewrites the denormalized username and profile picture
	// of every reply written by userID and returns the number of posts touched.
	UpdateReplyAuthor(ctx context.Context, userID, username, profilePic string) (int64, error)
}
