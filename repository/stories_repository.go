package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storyfeed-api/models"
)

type StoriesRepository struct {
	db *sql.DB
}

func NewStoriesRepository(db *sql.DB) *StoriesRepository {
	return &StoriesRepository{db: db}
}

func (r *StoriesRepository) CreateStory(ctx context.Context, authorID int, title string) (*models.Story, error) {
	s := models.Story{AuthorID: authorID, Title: title, Shared: true, Active: true, Collaborators: []models.Collaborator{}}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stories (author_id, title, shared, active, created_at, updated_at)
		VALUES ($1, $2, TRUE, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, authorID, title).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStory returns an active story with its collaborators.
func (r *StoriesRepository) GetStory(ctx context.Context, id int) (*models.Story, error) {
	var s models.Story
	err := r.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, shared, active, created_at, updated_at
		FROM stories
		WHERE id = $1 AND active = TRUE
	`, id).Scan(&s.ID, &s.AuthorID, &s.Title, &s.Shared, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("story %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.username, sc.edit
		FROM story_collaborators sc
		INNER JOIN authors a ON a.id = sc.author_id
		WHERE sc.story_id = $1
		ORDER BY a.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s.Collaborators = []models.Collaborator{}
	for rows.Next() {
		var c models.Collaborator
		if err := rows.Scan(&c.AuthorID, &c.Username, &c.Edit); err != nil {
			return nil, err
		}
		s.Collaborators = append(s.Collaborators, c)
	}
	return &s, rows.Err()
}

func (r *StoriesRepository) UpdateTitle(ctx context.Context, id int, title string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stories
		SET title = $1, updated_at = NOW()
		WHERE id = $2 AND active = TRUE
	`, title, id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("story %d", id))
}

// AddCollaborator adds authorID to the story or updates their edit flag.
func (r *StoriesRepository) AddCollaborator(ctx context.Context, storyID, authorID int, edit bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO story_collaborators (story_id, author_id, edit)
		VALUES ($1, $2, $3)
		ON CONFLICT (story_id, author_id) DO UPDATE SET edit = EXCLUDED.edit
	`, storyID, authorID, edit)
	return err
}

func (r *StoriesRepository) RemoveCollaborator(ctx context.Context, storyID, authorID int) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM story_collaborators
		WHERE story_id = $1 AND author_id = $2
	`, storyID, authorID)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("collaborator %d on story %d", authorID, storyID))
}

// SetShared toggles sharing. Making a story private removes every
// collaborator; their ids are returned.
func (r *StoriesRepository) SetShared(ctx context.Context, storyID int, shared bool) ([]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE stories
		SET shared = $1, updated_at = NOW()
		WHERE id = $2 AND active = TRUE
	`, shared, storyID)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res, fmt.Sprintf("story %d", storyID)); err != nil {
		return nil, err
	}

	var removed []int
	if !shared {
		rows, err := tx.QueryContext(ctx, `
			DELETE FROM story_collaborators
			WHERE story_id = $1
			RETURNING author_id
		`, storyID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			removed = append(removed, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *StoriesRepository) CreatePage(ctx context.Context, storyID, authorID int, title, body string) (*models.Page, error) {
	p := models.Page{StoryID: storyID, AuthorID: authorID, Title: title, Body: body}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pages (story_id, author_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`, storyID, authorID, title, body).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindAuthorsCollaborations returns active stories where authorID is an
// editing collaborator, or a read-only one when includeEditFalse is set, or
// the owner when includeAsAuthor is set. Collaborators are not loaded.
func (r *StoriesRepository) FindAuthorsCollaborations(ctx context.Context, authorID int, includeEditFalse, includeAsAuthor bool) ([]models.Story, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.author_id, s.title, s.shared, s.active, s.created_at, s.updated_at
		FROM stories s
		LEFT JOIN story_collaborators sc ON sc.story_id = s.id AND sc.author_id = $1
		WHERE s.active = TRUE
		  AND ((sc.author_id IS NOT NULL AND (sc.edit = TRUE OR $2::boolean))
		       OR ($3::boolean AND s.author_id = $1))
		ORDER BY s.id
	`, authorID, includeEditFalse, includeAsAuthor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Story{}
	for rows.Next() {
		var s models.Story
		if err := rows.Scan(&s.ID, &s.AuthorID, &s.Title, &s.Shared, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
