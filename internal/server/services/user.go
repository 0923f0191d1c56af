// Package services contains server-side business logic. This file implements
// UserService: signup, login, profile reads and updates, and the follow
// toggle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/dbx"
	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/auth"
	"github.com/dmitrijs2005/threads/internal/server/config"
	"github.com/dmitrijs2005/threads/internal/server/media"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/dmitrijs2005/threads/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid username or password"

// Session is a user together with a freshly signed session token.
type Session struct {
	User  *models.User
	Token string
}

// UserService provides the credential store operations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Store
	logger      logging.Logger
	jwtSecret   []byte
	sessionTTL  time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store media.Store, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		media:       store,
		logger:      logger.With("module", "users"),
		jwtSecret:   []byte(cfg.SecretKey),
		sessionTTL:  cfg.SessionTTL,
	}
}

// SessionTTL is the lifetime of tokens issued by the service.
func (s *UserService) SessionTTL() time.Duration { return s.sessionTTL }

// Signup creates a user and signs a session for it.
func (s *UserService) Signup(ctx context.Context, name, email, username, password string) (*Session, error) {
	name, email, username = strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(username)
	if name == "" || email == "" || username == "" || password == "" {
		return nil, common.Errorf(common.ErrInvalidRequest, "All fields are required")
	}
	if len(password) < models.MinPasswordLength {
		return nil, common.Errorf(common.ErrInvalidRequest, "Password must be at least %d characters long", models.MinPasswordLength)
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return nil, common.Errorf(common.ErrConflict, "User already exists")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{Name: name, Email: email, Username: username, Password: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.issue(user)
}

// Login verifies the credentials and signs a session. Unknown usernames and
// wrong passwords are indistinguishable to the caller, and both run a bcrypt
// comparison.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, common.Errorf(common.ErrInvalidCredential, invalidCredentials)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, common.Errorf(common.ErrInvalidCredential, invalidCredentials)
	}

	return s.issue(user)
}

// GetByID resolves a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// GetProfile resolves query by identifier when it looks like one, otherwise
// by username.
func (s *UserService) GetProfile(ctx context.Context, query string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	var (
		user *models.User
		err  error
	)
	if _, perr := uuid.Parse(query); perr == nil {
		user, err = repo.GetByID(ctx, query)
	} else {
		user, err = repo.GetByUsername(ctx, query)
	}
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// UpdateProfile applies upd to the acting user's record. Fields left nil or
// set to "" are kept, except Bio which "" clears. A new picture is uploaded
// before the record is written and the previous one is removed only once the
// write succeeded. Afterwards the denormalised author fields of the user's
// replies are refreshed; that step is best effort.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, targetID string, upd models.ProfileUpdate) (*models.User, error) {
	if actor.ID != targetID {
		return nil, common.Errorf(common.ErrForbidden, "You cannot update other user's profile")
	}

	user, err := s.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	oldUsername, oldEmail, oldPic := user.Username, user.Email, user.ProfilePic

	applyProvided(&user.Name, upd.Name)
	applyProvided(&user.Email, upd.Email)
	applyProvided(&user.Username, upd.Username)
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.Password != nil && *upd.Password != "" {
		if len(*upd.Password) < models.MinPasswordLength {
			return nil, common.Errorf(common.ErrInvalidRequest, "Password must be at least %d characters long", models.MinPasswordLength)
		}
		if user.Password, err = hashPassword(*upd.Password); err != nil {
			return nil, err
		}
	}

	repo := s.repomanager.Users(s.db)

	if user.Username != oldUsername || user.Email != oldEmail {
		taken, err := repo.TakenByOther(ctx, user.ID, user.Email, user.Username)
		if err != nil {
			return nil, fmt.Errorf("error checking user: %w", err)
		}
		if taken {
			return nil, common.Errorf(common.ErrConflict, "Username or email already taken")
		}
	}

	newPic := ""
	if pic := provided(upd.ProfilePic); pic != "" && pic != oldPic {
		if newPic, err = s.media.Upload(ctx, pic); err != nil {
			return nil, fmt.Errorf("error uploading profile picture: %w", err)
		}
		user.ProfilePic = newPic
	}

	user, err = repo.Update(ctx, user)
	if err != nil {
		if newPic != "" {
			s.discardPicture(ctx, newPic)
		}
		return nil, userNotFound(err)
	}

	if newPic != "" && oldPic != "" {
		s.discardPicture(ctx, oldPic)
	}

	if user.Username != oldUsername || user.ProfilePic != oldPic {
		n, err := s.repomanager.Posts(s.db).UpdateReplyAuthor(ctx, user.ID, user.Username, user.ProfilePic)
		if err != nil {
			s.logger.Error(ctx, "reply author reconciliation failed", "user_id", user.ID, "error", err)
		} else {
			s.logger.Debug(ctx, "reply author reconciled", "user_id", user.ID, "posts", n)
		}
	}

	return user, nil
}

// FollowUnfollow toggles the follow edge from actor to targetID and reports
// whether actor follows the target afterwards. Both edges change in one
// transaction.
func (s *UserService) FollowUnfollow(ctx context.Context, actor *models.User, targetID string) (bool, error) {
	if actor.ID == targetID {
		return false, common.Errorf(common.ErrInvalidRequest, "You cannot follow/unfollow yourself")
	}

	if _, err := s.GetByID(ctx, targetID); err != nil {
		return false, err
	}
	current, err := s.GetByID(ctx, actor.ID)
	if err != nil {
		return false, err
	}

	following := current.IsFollowing(targetID)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if following {
			if err := repo.RemoveFollower(ctx, targetID, actor.ID); err != nil {
				return err
			}
			return repo.RemoveFollowing(ctx, actor.ID, targetID)
		}
		if err := repo.AddFollower(ctx, targetID, actor.ID); err != nil {
			return err
		}
		return repo.AddFollowing(ctx, actor.ID, targetID)
	})
	if err != nil {
		return false, fmt.Errorf("error toggling follow: %w", err)
	}

	return !following, nil
}

// --- helpers below ---

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing session: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

func (s *UserService) discardPicture(ctx context.Context, url string) {
	if err := s.media.Destroy(ctx, url); err != nil {
		s.logger.Warn(ctx, "profile picture not removed", "url", url, "error", err)
	}
}

// provided returns the trimmed value of v, or "" when v is absent.
func provided(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func applyProvided(dst *string, v *string) {
	if p := provided(v); p != "" {
		*dst = p
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

// dummyHash is compared against when the username does not exist.
func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("threads-dummy-password"), bcrypt.DefaultCost)
	})
	return dummy
}

func userNotFound(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.Errorf(common.ErrNotFound, "User not found")
	}
	return err
}
