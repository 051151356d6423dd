package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID         uuid.UUID `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ChangeFreq string    `json:"change_freq,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewPost creates a new post with generated UUID and timestamps
func NewPost(slug, title string) *Post {
	now := time.Now()
	return &Post{
		ID:        uuid.New(),
		Slug:      slug,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
