package models

import "time"

// Post is a post-store document. Replies are embedded in creation order.
type Post struct {
	ID        string    `json:"_id"`
	PostedBy  string    `json:"postedBy"`
	Text      string    `json:"text"`
	Img       string    `json:"img,omitempty"`
	Likes     []string  `json:"likes"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reply is embedded in a Post. Username and UserProfilePic are copies of the
// author's profile taken when the reply was written and refreshed whenever
// the author changes either of them.
type Reply struct {
	ID             string `json:"_id"`
	UserID         string `json:"userId"`
	Text           string `json:"text"`
	UserProfilePic string `json:"userProfilePic"`
	Username       string `json:"username"`
}

// LikeState is the outcome of a like toggle.
type LikeState bool

const (
	Unliked LikeState = false
	Liked   LikeState = true
)
