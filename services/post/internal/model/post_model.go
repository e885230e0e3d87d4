package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostModel struct {
	ID        string    `gorm:"type:uuid;primary_key"`
	UserID    string    `gorm:"type:uuid;not null;index"`
	Desc      string    `gorm:"type:text"`
	Img       string    `gorm:"type:varchar(500)"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	User     UserModel      `gorm:"foreignKey:UserID"`
	Likes    []LikeModel    `gorm:"foreignKey:PostID"`
	Comments []CommentModel `gorm:"foreignKey:PostID"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (p *PostModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type LikeModel struct {
	ID        string `gorm:"type:uuid;primary_key"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_likes_post_user"`
	PostID    string `gorm:"type:uuid;not null;uniqueIndex:idx_likes_post_user"`
	CreatedAt time.Time
}

func (LikeModel) TableName() string {
	return "likes"
}

func (l *LikeModel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

type CommentModel struct {
	ID        string `gorm:"type:uuid;primary_key"`
	PostID    string `gorm:"type:uuid;not null;index"`
	UserID    string `gorm:"type:uuid;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time

	User UserModel `gorm:"foreignKey:UserID"`
}

func (CommentModel) TableName() string {
	return "comments"
}

func (c *CommentModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
