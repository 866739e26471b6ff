package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ContentRepository = (*ContentRepo)(nil)

// ContentRepo handles database operations for ingested content items
type ContentRepo struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

const contentColumns = `id, COALESCE(source_id, ''), COALESCE(topic_id, ''), platform, content_type,
	COALESCE(title, ''), COALESCE(body, ''), COALESCE(url, ''), COALESCE(author, ''), published_at,
	views, likes, comments, shares, engagement_score, metadata, created_at`

func scanContent(row interface{ Scan(dest ...any) error }) (*ContentItem, error) {
	var item ContentItem
	var published sql.NullTime
	err := row.Scan(
		&item.ID, &item.SourceID, &item.TopicID, &item.Platform, &item.ContentType,
		&item.Title, &item.Body, &item.URL, &item.Author, &published,
		&item.Views, &item.Likes, &item.Comments, &item.Shares, &item.EngagementScore,
		&item.Metadata, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if published.Valid {
		item.PublishedAt = published.Time
	}
	return &item, nil
}

// FindContentByURL returns ErrNotFound when no item carries the URL.
func (r *ContentRepo) FindContentByURL(ctx context.Context, url string) (*ContentItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE url = ?`, url)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content by URL: %w", err)
	}
	return item, nil
}

// InsertContent returns ErrDuplicateURL when the unique URL index rejects the row.
func (r *ContentRepo) InsertContent(ctx context.Context, item ContentItem) (*ContentItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_items (
			id, source_id, topic_id, platform, content_type, title, body, url, author,
			published_at, views, likes, comments, shares, engagement_score, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, nullString(item.SourceID), nullString(item.TopicID), item.Platform, item.ContentType,
		item.Title, item.Body, nullString(item.URL), item.Author, item.PublishedAt.UTC(),
		item.Views, item.Likes, item.Comments, item.Shares, item.EngagementScore,
		item.Metadata, item.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateURL
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert content: %w", err)
	}

	return &item, nil
}

func (r *ContentRepo) ListContent(ctx context.Context, limit int) ([]ContentItem, error) {
	return r.queryContent(ctx, `SELECT `+contentColumns+` FROM content_items
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (r *ContentRepo) ListContentBySource(ctx context.Context, sourceID string, limit int) ([]ContentItem, error) {
	return r.queryContent(ctx, `SELECT `+contentColumns+` FROM content_items
		WHERE source_id = ?
		ORDER BY COALESCE(published_at, created_at) DESC, rowid DESC LIMIT ?`, sourceID, limit)
}

func (r *ContentRepo) CountContent(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get content count: %w", err)
	}
	return count, nil
}

func (r *ContentRepo) queryContent(ctx context.Context, query string, args ...any) ([]ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content rows: %w", err)
	}

	return items, nil
}
