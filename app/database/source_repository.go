package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles database operations for source configurations
type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, name, platform, source_url, active, frequency, last_polled_at,
	params, COALESCE(topic_id, ''), created_at, updated_at`

func scanSource(row interface{ Scan(dest ...any) error }) (*Source, error) {
	var source Source
	var frequency string
	var lastPolled sql.NullTime
	err := row.Scan(
		&source.ID, &source.Name, &source.Platform, &source.SourceURL, &source.Active,
		&frequency, &lastPolled, &source.Params, &source.TopicID,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	source.Frequency = Frequency(frequency)
	if lastPolled.Valid {
		t := lastPolled.Time
		source.LastPolledAt = &t
	}
	return &source, nil
}

func (r *SourceRepo) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// GetSource returns ErrNotFound when no source has the given ID.
func (r *SourceRepo) GetSource(ctx context.Context, id string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return source, nil
}

func (r *SourceRepo) CreateSource(ctx context.Context, source Source) (*Source, error) {
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if source.Frequency == "" {
		source.Frequency = FrequencyDaily
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, platform, source_url, active, frequency, params, topic_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, source.ID, source.Name, source.Platform, source.SourceURL, source.Active,
		string(source.Frequency), source.Params, nullString(source.TopicID), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	return r.GetSource(ctx, source.ID)
}

// UpsertSource inserts the source or overwrites its configuration fields, keeping
// the last poll timestamp and creation time of an existing row.
func (r *SourceRepo) UpsertSource(ctx context.Context, source Source) (*Source, error) {
	if source.ID == "" {
		return nil, fmt.Errorf("source id is required for upsert")
	}
	if source.Frequency == "" {
		source.Frequency = FrequencyDaily
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, platform, source_url, active, frequency, params, topic_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			platform = excluded.platform,
			source_url = excluded.source_url,
			active = excluded.active,
			frequency = excluded.frequency,
			params = excluded.params,
			topic_id = excluded.topic_id,
			updated_at = excluded.updated_at
	`, source.ID, source.Name, source.Platform, source.SourceURL, source.Active,
		string(source.Frequency), source.Params, nullString(source.TopicID), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert source: %w", err)
	}

	return r.GetSource(ctx, source.ID)
}

func (r *SourceRepo) UpdateSource(ctx context.Context, source Source) (*Source, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET name = ?, platform = ?, source_url = ?, active = ?, frequency = ?, params = ?, topic_id = ?, updated_at = ?
		WHERE id = ?
	`, source.Name, source.Platform, source.SourceURL, source.Active, string(source.Frequency),
		source.Params, nullString(source.TopicID), time.Now().UTC(), source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return r.GetSource(ctx, source.ID)
}

func (r *SourceRepo) DeleteSource(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SourceRepo) MarkSourcePolled(ctx context.Context, id string, polledAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sources SET last_polled_at = ? WHERE id = ?`, polledAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last poll time: %w", err)
	}
	return nil
}

func (r *SourceRepo) CountSources(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
