package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/dmitrijs2005/threads/internal/server/services"
)

// ---- fakes ----

type fakeUsers struct {
	byID map[string]*models.User

	signupErr error
	loginErr  error
	updateErr error
	followErr error
	followed  bool

	gotUpdate models.ProfileUpdate
	getErr    error
}

func (f *fakeUsers) Signup(ctx context.Context, name, email, username, password string) (*services.Session, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &services.Session{User: &models.User{ID: "new-id", Name: name, Email: email, Username: username, Password: "hash"}, Token: "tok"}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (*services.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{User: &models.User{ID: "u1", Username: username, Password: "hash"}, Token: "tok"}, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.Errorf(common.ErrNotFound, "User not found")
	}
	return u, nil
}

func (f *fakeUsers) GetProfile(ctx context.Context, query string) (*models.User, error) {
	for _, u := range f.byID {
		if u.ID == query || u.Username == query {
			return u, nil
		}
	}
	return nil, common.Errorf(common.ErrNotFound, "User not found")
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, actor *models.User, targetID string, upd models.ProfileUpdate) (*models.User, error) {
	f.gotUpdate = upd
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return actor, nil
}

func (f *fakeUsers) FollowUnfollow(ctx context.Context, actor *models.User, targetID string) (bool, error) {
	return f.followed, f.followErr
}

func (f *fakeUsers) SessionTTL() time.Duration { return 15 * 24 * time.Hour }

type fakePosts struct {
	post    *models.Post
	posts   []*models.Post
	state   models.LikeState
	err     error
	actor   *models.User
	gotText string
}

func (f *fakePosts) Create(ctx context.Context, actor *models.User, postedBy, text, img string) (*models.Post, error) {
	f.actor, f.gotText = actor, text
	if f.err != nil {
		return nil, f.err
	}
	return &models.Post{ID: "p1", PostedBy: postedBy, Text: text, Likes: []string{}, Replies: []models.Reply{}}, nil
}

func (f *fakePosts) Get(ctx context.Context, id string) (*models.Post, error) {
	return f.post, f.err
}

func (f *fakePosts) Delete(ctx context.Context, actor *models.User, id string) error {
	f.actor = actor
	return f.err
}

func (f *fakePosts) LikeUnlike(ctx context.Context, actor *models.User, id string) (models.LikeState, error) {
	return f.state, f.err
}

func (f *fakePosts) Reply(ctx context.Context, actor *models.User, postID, text string) (*models.Reply, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Reply{ID: "r1", UserID: actor.ID, Text: text, Username: actor.Username}, nil
}

func (f *fakePosts) Feed(ctx context.Context, actor *models.User) ([]*models.Post, error) {
	f.actor = actor
	return f.posts, f.err
}

func (f *fakePosts) ByUser(ctx context.Context, username string) ([]*models.Post, error) {
	return f.posts, f.err
}
