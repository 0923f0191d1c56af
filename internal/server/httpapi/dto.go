package httpapi

import (
	"time"

	"github.com/dmitrijs2005/threads/internal/server/models"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createPostRequest struct {
	PostedBy string `json:"postedBy"`
	Text     string `json:"text"`
	Img      string `json:"img"`
}

type replyRequest struct {
	Text string `json:"text"`
}

// sessionUser is returned by signup and login.
type sessionUser struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profilePic"`
}

func toSessionUser(u *models.User) sessionUser {
	return sessionUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Username:   u.Username,
		Bio:        u.Bio,
		ProfilePic: u.ProfilePic,
	}
}

// publicProfile is a user without the password hash and update timestamp.
type publicProfile struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	Bio        string    `json:"bio"`
	Followers  []string  `json:"followers"`
	Following  []string  `json:"following"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toPublicProfile(u *models.User) publicProfile {
	return publicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
		Followers:  u.Followers,
		Following:  u.Following,
		CreatedAt:  u.CreatedAt,
	}
}
