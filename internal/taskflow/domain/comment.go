package domain

import "time"

type Comment struct {
	ID        string
	TaskID    string
	UserID    string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommentView is a comment with its author populated.
type CommentView struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	User      UserRef   `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
