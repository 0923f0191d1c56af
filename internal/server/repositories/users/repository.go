package users

import (
	"context"

	"github.com/dmitrijs2005/threads/internal/server/models"
)

// Repository is the credential store. Follow edges are kept with set
// semantics: adding an id that is already present is a no-op.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	TakenByOther(ctx context.Context, id, email, username string) (bool, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)

	AddFollowing(ctx context.Context, userID, targetID string) error
	RemoveFollowing(ctx context.Context, userID, targetID string) error
	AddFollower(ctx context.Context, userID, followerID string) error
	RemoveFollower(ctx context.Context, userID, followerID string) error
}
