package services

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/dbx"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/dmitrijs2005/threads/internal/server/repositories/posts"
	"github.com/dmitrijs2005/threads/internal/server/repositories/users"
	"github.com/google/uuid"
)

// -------- test fakes --------

type fakeUsersRepo struct {
	byID      map[string]*models.User
	err       error
	updateErr error
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range us {
		if u.Followers == nil {
			u.Followers = []string{}
		}
		if u.Following == nil {
			u.Following = []string{}
		}
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) clone(u *models.User) *models.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	return &c
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u.ID = uuid.NewString()
	u.Followers, u.Following = []string{}, []string{}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	f.byID[u.ID] = f.clone(u)
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return f.clone(u), nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Username == username {
			return f.clone(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.byID {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) TakenByOther(ctx context.Context, id, email, username string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.byID {
		if u.ID != id && (u.Email == email || u.Username == username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.byID[u.ID]; !ok {
		return nil, common.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	f.byID[u.ID] = f.clone(u)
	return u, nil
}

func (f *fakeUsersRepo) AddFollowing(ctx context.Context, userID, targetID string) error {
	u := f.byID[userID]
	if !slices.Contains(u.Following, targetID) {
		u.Following = append(u.Following, targetID)
	}
	return f.err
}

func (f *fakeUsersRepo) RemoveFollowing(ctx context.Context, userID, targetID string) error {
	u := f.byID[userID]
	u.Following = slices.DeleteFunc(u.Following, func(id string) bool { return id == targetID })
	return f.err
}

func (f *fakeUsersRepo) AddFollower(ctx context.Context, userID, followerID string) error {
	u := f.byID[userID]
	if !slices.Contains(u.Followers, followerID) {
		u.Followers = append(u.Followers, followerID)
	}
	return f.err
}

func (f *fakeUsersRepo) RemoveFollower(ctx context.Context, userID, followerID string) error {
	u := f.byID[userID]
	u.Followers = slices.DeleteFunc(u.Followers, func(id string) bool { return id == followerID })
	return f.err
}

var _ users.Repository = (*fakeUsersRepo)(nil)

type fakePostsRepo struct {
	byID      map[string]*models.Post
	seq       int
	reconcile error
}

func newFakePostsRepo() *fakePostsRepo {
	return &fakePostsRepo{byID: map[string]*models.Post{}}
}

func (f *fakePostsRepo) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	p.ID = uuid.NewString()
	f.seq++
	p.CreatedAt = time.Unix(int64(f.seq), 0)
	p.UpdatedAt = p.CreatedAt
	p.Likes, p.Replies = []string{}, []models.Reply{}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakePostsRepo) ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error) {
	p, ok := f.byID[postID]
	if !ok {
		return models.Unliked, common.ErrNotFound
	}
	if slices.Contains(p.Likes, userID) {
		p.Likes = slices.DeleteFunc(p.Likes, func(id string) bool { return id == userID })
		return models.Unliked, nil
	}
	p.Likes = append(p.Likes, userID)
	return models.Liked, nil
}

func (f *fakePostsRepo) AppendReply(ctx context.Context, postID string, r *models.Reply) error {
	p, ok := f.byID[postID]
	if !ok {
		return common.ErrNotFound
	}
	r.ID = uuid.NewString()
	p.Replies = append(p.Replies, *r)
	return nil
}

func (f *fakePostsRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*models.Post, error) {
	out := []*models.Post{}
	for _, p := range f.byID {
		if slices.Contains(authorIDs, p.PostedBy) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePostsRepo) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return f.ListByAuthors(ctx, []string{authorID})
}

func (f *fakePostsRepo) UpdateReplyAuthor(ctx context.Context, userID, username, profilePic string) (int64, error) {
	if f.reconcile != nil {
		return 0, f.reconcile
	}
	var n int64
	for _, p := range f.byID {
		touched := false
		for i := range p.Replies {
			if p.Replies[i].UserID == userID {
				p.Replies[i].Username = username
				p.Replies[i].UserProfilePic = profilePic
				touched = true
			}
		}
		if touched {
			n++
		}
	}
	return n, nil
}

var _ posts.Repository = (*fakePostsRepo)(nil)

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePostsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.u }
func (m *fakeRepoManager) Posts(db dbx.DBTX) posts.Repository          { return m.p }

type fakeMedia struct {
	uploaded  []string
	destroyed []string
	err       error
}

func (f *fakeMedia) Upload(ctx context.Context, payload string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, payload)
	return "https://cdn.test/images/" + payload, nil
}

func (f *fakeMedia) Destroy(ctx context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.destroyed = append(f.destroyed, url)
	return nil
}
