package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/routekit/sitemap/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS posts (
            id UUID PRIMARY KEY,
            slug VARCHAR(255) UNIQUE NOT NULL,
            title VARCHAR(255) NOT NULL,
            body TEXT,
            change_freq VARCHAR(32),
            priority VARCHAR(8),
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
        INSERT INTO posts (id, slug, title, body, change_freq, priority, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (slug) DO UPDATE SET
            title = EXCLUDED.title,
            body = EXCLUDED.body,
            change_freq = EXCLUDED.change_freq,
            priority = EXCLUDED.priority,
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := s.db.ExecContext(ctx, query,
		post.ID,
		post.Slug,
		post.Title,
		post.Body,
		post.ChangeFreq,
		post.Priority,
		post.CreatedAt,
		post.UpdatedAt,
	)

	return err
}

func (s *PostgresStore) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query := `
        SELECT id, slug, title, body, change_freq, priority, created_at, updated_at
        FROM posts
        WHERE slug = $1
    `

	var post models.Post
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Body,
		&post.ChangeFreq,
		&post.Priority,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &post, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	query := `
        SELECT id, slug, title, body, change_freq, priority, created_at, updated_at
        FROM posts
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(
			&post.ID,
			&post.Slug,
			&post.Title,
			&post.Body,
			&post.ChangeFreq,
			&post.Priority,
			&post.CreatedAt,
			&post.UpdatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}

	return posts, rows.Err()
}

func (s *PostgresStore) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
