// Package models defines the documents persisted by the threads server.
package models

import "time"

const (
	// MaxTextLength bounds post and reply text, in characters.
	MaxTextLength = 500
	// MinPasswordLength is the shortest raw password accepted.
	MinPasswordLength = 6
)

// User is a credential-store document. Password holds the bcrypt hash and is
// never serialised.
type User struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	ProfilePic string    `json:"profilePic"`
	Bio        string    `json:"bio"`
	Followers  []string  `json:"followers"`
	Following  []string  `json:"following"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsFollowing reports whether u follows userID.
func (u *User) IsFollowing(userID string) bool {
	for _, id := range u.Following {
		if id == userID {
			return true
		}
	}
	return false
}

// ProfileUpdate is a partial update of a user. A nil or empty field is left
// as is; Bio is the exception and may be cleared with "".
type ProfileUpdate struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Bio        *string `json:"bio"`
	ProfilePic *string `json:"profilePic"`
}
