package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
)

var activityRowColumns = []string{"id", "author_id", "type", "active", "data", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestActivitiesCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO activities").
		WithArgs(3, "system_message", `{"message":"hi"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))

	rec, err := repo.Create(context.Background(), models.NewActivity{
		Author: 3,
		Type:   "system_message",
		Data:   models.SystemPayload{Message: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, rec.ID)
	assert.True(t, rec.Active)
	assert.Equal(t, now, rec.Updated)
	assert.Equal(t, models.SystemPayload{Message: "hi"}, rec.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivitiesFindDecodesPayloadsAndFailsClosed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := since.Add(time.Hour)

	mock.ExpectQuery("FROM activities").
		WithArgs(5, since).
		WillReturnRows(sqlmock.NewRows(activityRowColumns).
			AddRow(1, 5, "story_created", true, []byte(`{"storyId":9,"storyTitle":"Dunes"}`), now, now).
			AddRow(2, 5, "mystery_type", true, []byte(`{"x":1}`), now, now).
			AddRow(3, 5, "story_updated", true, []byte(`not json`), now, now))

	recs, err := repo.FindByAuthor(context.Background(), 5, since)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, models.StoryPayload{StoryID: 9, StoryTitle: "Dunes"}, recs[0].Data)
	assert.Nil(t, recs[1].Data)
	assert.Nil(t, recs[2].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivitiesFindSocialIncludesSystemMessages(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())
	since := time.Now()

	mock.ExpectQuery(`author_id = ANY\(\$1\) AND updated_at > \$2\) OR type = \$3`).
		WithArgs(sqlmock.AnyArg(), since, "system_message").
		WillReturnRows(sqlmock.NewRows(activityRowColumns))

	recs, err := repo.FindSocial(context.Background(), []int{1, 2}, since)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivitiesFindCollaborationMatchesOldCollaborators(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())
	since := time.Now().Add(-time.Hour)
	now := time.Now()

	mock.ExpectQuery(`data->'oldCollaborators' @> jsonb_build_array\(\$2::int\)`).
		WithArgs(sqlmock.AnyArg(), 4, since).
		WillReturnRows(sqlmock.NewRows(activityRowColumns).
			AddRow(7, 1, "collaboration_share_false", true, []byte(`{"storyId":3,"storyTitle":"T","actorName":"ada","oldCollaborators":[4,5]}`), now, now))

	recs, err := repo.FindCollaboration(context.Background(), nil, 4, since)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	p, ok := recs[0].Data.(models.CollaborationPayload)
	require.True(t, ok)
	assert.Equal(t, []int{4, 5}, p.OldCollaborators)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivitiesQueryErrorPropagates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())
	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM activities").WillReturnError(boom)

	recs, err := repo.FindByAuthor(context.Background(), 1, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, recs)
}

func TestActivitiesGetAndSetActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivitiesRepository(db, activity.DefaultCatalog())

	mock.ExpectQuery("FROM activities WHERE id").WithArgs(99).WillReturnError(sql.ErrNoRows)
	_, err := repo.GetActivity(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec("UPDATE activities").WithArgs(false, 99).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetActive(context.Background(), 99, false), ErrNotFound)

	mock.ExpectExec("UPDATE activities").WithArgs(false, 5).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SetActive(context.Background(), 5, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
