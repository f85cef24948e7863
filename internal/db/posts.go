package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content,omitempty"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListPosts returns all posts newest first, without the gated content
// body.
func (d *DB) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := d.query(ctx, `
		SELECT id, title, summary, created_at
		FROM posts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Summary, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns the full post including content and images, or
// ErrNotFound.
func (d *DB) GetPost(ctx context.Context, id string) (*Post, error) {
	var p Post
	err := d.queryRow(ctx, `
		SELECT id, title, summary, content, images, created_at
		FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Summary, &p.Content, pq.Array(&p.Images), &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}
	return &p, nil
}

func (d *DB) CreatePost(ctx context.Context, title, summary, content string, images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	var id string
	err := d.queryRow(ctx, `
		INSERT INTO posts (title, summary, content, images)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, title, summary, content, pq.Array(images)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("creating post: %w", err)
	}
	return id, nil
}

func (d *DB) DeletePost(ctx context.Context, id string) error {
	res, err := d.exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
