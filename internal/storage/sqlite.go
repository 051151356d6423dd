package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/routekit/sitemap/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS posts (
            id TEXT PRIMARY KEY,
            slug TEXT UNIQUE NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            change_freq TEXT,
            priority TEXT,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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

func (s *SQLiteStore) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
        INSERT INTO posts (id, slug, title, body, change_freq, priority, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(slug) DO UPDATE SET
            title = excluded.title,
            body = excluded.body,
            change_freq = excluded.change_freq,
            priority = excluded.priority,
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := s.db.ExecContext(ctx, query,
		post.ID.String(),
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

func (s *SQLiteStore) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query := `
        SELECT id, slug, title, body, change_freq, priority, created_at, updated_at
        FROM posts
        WHERE slug = ?
    `

	var post models.Post
	var idStr string
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&idStr,
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

	post.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing post id: %w", err)
	}

	return &post, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	query := `
        SELECT id, slug, title, body, change_freq, priority, created_at, updated_at
        FROM posts
        ORDER BY created_at DESC
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		var idStr string
		if err := rows.Scan(
			&idStr,
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

		post.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing post id: %w", err)
		}

		posts = append(posts, &post)
	}

	return posts, rows.Err()
}

func (s *SQLiteStore) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
