package entity

import "time"

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Password     string     `json:"-"`
	ProfilePhoto string     `json:"profilePhoto"`
	PostCount    int        `json:"postCount"`
	LastPostDate *time.Time `json:"lastPostDate"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
