package models

import "time"

type Post struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AuthorID     string    `json:"author_id" gorm:"not null;index"`
	Author       *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Title        string    `json:"title" gorm:"not null"`
	Slug         string    `json:"slug" gorm:"index"`
	Category     string    `json:"category" gorm:"index;default:'general'"`
	Body         string    `json:"body"`
	BodyHTML     string    `json:"body_html"`
	LikeCount    int       `json:"like_count" gorm:"default:0"`
	CommentCount int       `json:"comment_count" gorm:"default:0"`
	Comments     []Comment `json:"comments,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID    uint      `json:"post_id" gorm:"not null;index"`
	AuthorID  string    `json:"author_id" gorm:"not null;index"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	ParentID  *uint     `json:"parent_id" gorm:"index"`
	Body      string    `json:"body" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostLike struct {
	PostID    uint      `json:"post_id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Body     string `json:"body"`
}

type CreateCommentRequest struct {
	Body     string `json:"body"`
	ParentID *uint  `json:"parent_id"`
}

type PostFilter struct {
	Category string
	AuthorID string
	Page     int
	Limit    int
}

type PostPage struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}
