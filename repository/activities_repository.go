package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
)

type ActivitiesRepository struct {
	db      *sql.DB
	catalog *activity.Catalog
}

func NewActivitiesRepository(db *sql.DB, catalog *activity.Catalog) *ActivitiesRepository {
	return &ActivitiesRepository{db: db, catalog: catalog}
}

const activityColumns = `id, author_id, type, active, data, created_at, updated_at`

func (r *ActivitiesRepository) Create(ctx context.Context, a models.NewActivity) (*models.ActivityRecord, error) {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal activity data: %w", err)
	}
	rec := models.ActivityRecord{Author: a.Author, Type: a.Type, Active: true, Data: a.Data}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO activities (author_id, type, active, data, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3::jsonb, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, a.Author, a.Type, string(data)).Scan(&rec.ID, &rec.Created, &rec.Updated)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ActivitiesRepository) GetActivity(ctx context.Context, id int) (*models.ActivityRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetActive flips the soft-delete flag.
func (r *ActivitiesRepository) SetActive(ctx context.Context, id int, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET active = $1,
		    updated_at = NOW()
		WHERE id = $2
	`, active, id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("activity %d", id))
}

func (r *ActivitiesRepository) FindByAuthor(ctx context.Context, authorID int, since time.Time) ([]models.ActivityRecord, error) {
	return r.query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE author_id = $1
		  AND active = TRUE
		  AND updated_at > $2
	`, authorID, since)
}

// FindSocial returns system messages without a time bound; the feed engine
// applies the cutoff per record.
func (r *ActivitiesRepository) FindSocial(ctx context.Context, authorIDs []int, since time.Time) ([]models.ActivityRecord, error) {
	return r.query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE active = TRUE
		  AND ((author_id = ANY($1) AND updated_at > $2) OR type = $3)
	`, pq.Array(toInt64s(authorIDs)), since, activity.TypeSystemMessage)
}

func (r *ActivitiesRepository) FindCollaboration(ctx context.Context, storyIDs []int, viewerID int, since time.Time) ([]models.ActivityRecord, error) {
	return r.query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE active = TRUE
		  AND updated_at > $3
		  AND ((data->>'storyId')::int = ANY($1)
		       OR data->'oldCollaborators' @> jsonb_build_array($2::int))
	`, pq.Array(toInt64s(storyIDs)), viewerID, since)
}

func (r *ActivitiesRepository) query(ctx context.Context, q string, args ...any) ([]models.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.ActivityRecord{}
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scan reads one activity row. Data is decoded through the catalog; rows of
// unknown type or with malformed data come back with a nil Data.
func (r *ActivitiesRepository) scan(row rowScanner) (*models.ActivityRecord, error) {
	var (
		rec models.ActivityRecord
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.Author, &rec.Type, &rec.Active, &raw, &rec.Created, &rec.Updated); err != nil {
		return nil, err
	}
	if e, ok := r.catalog.Classify(rec.Type); ok {
		if p, err := models.DecodePayload(e.Payload, raw); err == nil {
			rec.Data = p
		}
	}
	return &rec, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
