package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/auth"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fixture struct {
	users *fakeUsers
	posts *fakePosts
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: &fakeUsers{byID: map[string]*models.User{
			"u1": {ID: "u1", Username: "ann", Name: "Ann", Password: "hash", Followers: []string{}, Following: []string{}},
		}},
		posts: &fakePosts{},
	}
	s := NewHTTPServer(Options{SecretKey: testSecret, BodyLimit: 1 << 10}, logging.Nop{}, f.users, f.posts)
	f.srv = httptest.NewServer(s.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, authed bool) (*http.Response, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if authed {
		tok, err := auth.GenerateToken("u1", []byte(testSecret), time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: tok})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body["status"])
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/signup",
		`{"name":"A","email":"a@x.com","username":"a","password":"secret1"}`, false)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "new-id", body["_id"])
	assert.NotContains(t, body, "password")

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignup_Conflict(t *testing.T) {
	f := newFixture(t)
	f.users.signupErr = common.Errorf(common.ErrConflict, "User already exists")

	resp, body := f.do(t, http.MethodPost, "/api/users/signup", `{"username":"a"}`, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", body["error"])
}

func TestLogin_InvalidCredential(t *testing.T) {
	f := newFixture(t)
	f.users.loginErr = common.Errorf(common.ErrInvalidCredential, "Invalid username or password")

	resp, body := f.do(t, http.MethodPost, "/api/login", `{"username":"a","password":"wrong"}`, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid username or password", body["error"])
	assert.Empty(t, resp.Cookies())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/logout", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User logged out successfully", body["message"])
	require.Len(t, resp.Cookies(), 1)
	assert.Equal(t, -1, resp.Cookies()[0].MaxAge)
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/login", `{"username":`, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t)

	big := `{"text":"` + strings.Repeat("a", 2<<10) + `"}`
	resp, _ := f.do(t, http.MethodPost, "/api/posts", big, true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/profile/ann", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", body["_id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "updatedAt")

	resp, body = f.do(t, http.MethodGet, "/api/users/profile/ghost", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", body["error"])
}

func TestUpdateProfile_PassesPartialFields(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/profile/u1", `{"bio":""}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "password")

	require.NotNil(t, f.users.gotUpdate.Bio)
	assert.Equal(t, "", *f.users.gotUpdate.Bio)
	assert.Nil(t, f.users.gotUpdate.Name)
}

func TestUpdateProfile_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.users.updateErr = common.Errorf(common.ErrForbidden, "You cannot update other user's profile")

	resp, _ := f.do(t, http.MethodPut, "/api/users/update/u2", `{}`, true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFollow(t *testing.T) {
	f := newFixture(t)

	f.users.followed = true
	resp, body := f.do(t, http.MethodPost, "/api/follow/u2", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User followed successfully", body["message"])

	f.users.followed = false
	_, body = f.do(t, http.MethodPost, "/api/users/follow/u2", "", true)
	assert.Equal(t, "User unfollowed successfully", body["message"])

	f.users.followErr = common.Errorf(common.ErrInvalidRequest, "You cannot follow/unfollow yourself")
	resp, _ = f.do(t, http.MethodPost, "/api/follow/u1", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePost_UsesSessionUser(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/posts", `{"postedBy":"u1","text":"hi"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "p1", body["_id"])
	require.NotNil(t, f.posts.actor)
	assert.Equal(t, "u1", f.posts.actor.ID)

	resp, _ = f.do(t, http.MethodPost, "/api/posts/create", `{"postedBy":"u1","text":"hi"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostRoutes_StaticPathsWinOverIDs(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = []*models.Post{}

	resp, _ := f.do(t, http.MethodGet, "/api/posts/feed", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, f.posts.actor)
}

func TestGetPost_NotFound(t *testing.T) {
	f := newFixture(t)
	f.posts.err = common.Errorf(common.ErrNotFound, "Post not found")

	resp, body := f.do(t, http.MethodGet, "/api/posts/p9", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Post not found", body["error"])
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodDelete, "/api/posts/p1", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post deleted successfully", body["message"])

	f.posts.err = common.Errorf(common.ErrForbidden, "Unauthorized to delete post")
	resp, _ = f.do(t, http.MethodDelete, "/api/posts/p1", "", true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLike(t *testing.T) {
	f := newFixture(t)

	f.posts.state = models.Liked
	_, body := f.do(t, http.MethodPost, "/api/posts/p1/like", "", true)
	assert.Equal(t, "Post liked successfully", body["message"])

	f.posts.state = models.Unliked
	_, body = f.do(t, http.MethodPut, "/api/posts/like/p1", "", true)
	assert.Equal(t, "Post unliked successfully", body["message"])
}

func TestReply(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/posts/p1/reply", `{"text":"nice"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nice", body["text"])
	assert.Equal(t, "ann", body["username"])
}

func TestFeed_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = []*models.Post{}

	resp, err := func() (*http.Response, error) {
		req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/feed", nil)
		tok, _ := auth.GenerateToken("u1", []byte(testSecret), time.Hour)
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: tok})
		return http.DefaultClient.Do(req)
	}()
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestUserPosts(t *testing.T) {
	f := newFixture(t)
	f.posts.err = common.Errorf(common.ErrNotFound, "User not found")

	resp, _ := f.do(t, http.MethodGet, "/api/posts/user/ghost", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	f := newFixture(t)
	f.posts.err = errors.New("db error: connection refused")

	resp, body := f.do(t, http.MethodGet, "/api/posts/p1", "", false)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", body["error"])
}
