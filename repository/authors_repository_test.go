package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyfeed-api/models"
)

func TestGetAuthor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthorsRepository(db)
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t1.Add(2 * time.Hour)

	mock.ExpectQuery("FROM authors").WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "tl", "so", "co", "cm", "created"}).
			AddRow(2, "ada", t1, t2, t3, t1, t1))

	a, err := repo.GetAuthor(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "ada", a.Username)
	assert.Equal(t, models.ActivityCheckpoint{Timeline: t1, Social: t2, Collaboration: t3}, a.LastActivityCheck)

	mock.ExpectQuery("FROM authors").WithArgs(3).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetAuthor(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveActivityCheckPassesOnlyGivenChannels(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthorsRepository(db)
	social := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	old := social.Add(-24 * time.Hour)

	mock.ExpectQuery(`COALESCE\(\$3, last_social_check\)`).
		WithArgs(2, nil, social, nil).
		WillReturnRows(sqlmock.NewRows([]string{"tl", "so", "co"}).AddRow(old, social, old))

	cp, err := repo.SaveActivityCheck(context.Background(), 2, models.CheckpointUpdate{Social: &social})
	require.NoError(t, err)
	assert.Equal(t, social, cp.Social)
	assert.Equal(t, old, cp.Timeline)
	assert.Equal(t, old, cp.Collaboration)

	mock.ExpectQuery("UPDATE authors").WithArgs(8, nil, social, nil).WillReturnError(sql.ErrNoRows)
	_, err = repo.SaveActivityCheck(context.Background(), 8, models.CheckpointUpdate{Social: &social})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
