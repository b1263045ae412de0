package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storyfeed-api/models"
)

type AuthorsRepository struct {
	db *sql.DB
}

func NewAuthorsRepository(db *sql.DB) *AuthorsRepository {
	return &AuthorsRepository{db: db}
}

func (r *AuthorsRepository) GetAuthor(ctx context.Context, id int) (*models.Author, error) {
	var a models.Author
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, last_timeline_check, last_social_check,
		       last_collaboration_check, last_comments_check, created_at
		FROM authors
		WHERE id = $1
	`, id).Scan(
		&a.ID,
		&a.Username,
		&a.LastActivityCheck.Timeline,
		&a.LastActivityCheck.Social,
		&a.LastActivityCheck.Collaboration,
		&a.LastCommentsCheck,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveActivityCheck overwrites only the channels present in u, in a single
// statement, and returns the merged checkpoint.
func (r *AuthorsRepository) SaveActivityCheck(ctx context.Context, id int, u models.CheckpointUpdate) (*models.ActivityCheckpoint, error) {
	var cp models.ActivityCheckpoint
	err := r.db.QueryRowContext(ctx, `
		UPDATE authors
		SET last_timeline_check      = COALESCE($2, last_timeline_check),
		    last_social_check        = COALESCE($3, last_social_check),
		    last_collaboration_check = COALESCE($4, last_collaboration_check)
		WHERE id = $1
		RETURNING last_timeline_check, last_social_check, last_collaboration_check
	`, id, u.Timeline, u.Social, u.Collaboration).Scan(&cp.Timeline, &cp.Social, &cp.Collaboration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}
