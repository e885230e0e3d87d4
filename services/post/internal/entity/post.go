package entity

import "time"

type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	ProfilePhoto string    `json:"profilePhoto"`
	Desc         string    `json:"desc"`
	Img          string    `json:"img"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"-"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	ProfilePhoto string    `json:"profilePhoto"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Author struct {
	ID           string
	Username     string
	ProfilePhoto string
	PostCount    int
}
