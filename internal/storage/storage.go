package storage

import (
	"context"

	"github.com/routekit/sitemap/internal/models"
)

type Store interface {
	Initialize() error
	Close() error

	// Post operations
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error)
	CountPosts(ctx context.Context) (int, error)
}
