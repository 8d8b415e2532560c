package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siftlabs/sift/internal/contracts"
)

// PostRepository queries the collected post stream.
type PostRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository creates a new post repository.
func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

// Recent returns posts scraped within the window, newest first.
func (r *PostRepository) Recent(ctx context.Context, window time.Duration, limit int) ([]contracts.Post, error) {
	query := `
		SELECT id, platform, author, url, content, published_at, scraped_at
		FROM posts
		WHERE scraped_at >= $1
		ORDER BY scraped_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, time.Now().Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// SearchMentions finds posts mentioning the symbol or any thesis term
// within the window, newest first. Terms are matched case-insensitively
// against the post content.
func (r *PostRepository) SearchMentions(ctx context.Context, symbol string, terms []string, window time.Duration, limit int) ([]contracts.Post, error) {
	patterns := []string{"%" + symbol + "%", "%$" + symbol + "%"}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		patterns = append(patterns, "%"+t+"%")
	}

	query := `
		SELECT id, platform, author, url, content, published_at, scraped_at
		FROM posts
		WHERE scraped_at >= $1 AND content ILIKE ANY($2)
		ORDER BY scraped_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, time.Now().Add(-window), patterns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search post mentions: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]contracts.Post, error) {
	var out []contracts.Post
	for rows.Next() {
		var p contracts.Post
		if err := rows.Scan(&p.ID, &p.Platform, &p.Author, &p.URL, &p.Content, &p.PublishedAt, &p.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
