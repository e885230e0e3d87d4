package entity

import "time"

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	ProfilePhoto string     `json:"profilePhoto"`
	PostCount    int        `json:"postCount"`
	LastPostDate *time.Time `json:"lastPostDate"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserSummary is the public card shown in follower lists.
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto"`
}

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Desc      string    `json:"desc"`
	Img       string    `json:"img"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Profile struct {
	User
	Followers []UserSummary `json:"followers"`
	Following []UserSummary `json:"following"`
	Posts     []Post        `json:"posts"`
}
