package handlers

import (
	"context"

	"storyfeed-api/models"
)

// Store interfaces consumed by the handlers; implemented by the repository
// package and by feedtest.Store.

type AuthorStore interface {
	GetAuthor(ctx context.Context, id int) (*models.Author, error)
}

type CheckpointStore interface {
	AuthorStore
	SaveActivityCheck(ctx context.Context, id int, u models.CheckpointUpdate) (*models.ActivityCheckpoint, error)
}

type FollowStore interface {
	Follow(ctx context.Context, followerID, followedID int) (bool, error)
	Unfollow(ctx context.Context, followerID, followedID int) error
	ListFollowed(ctx context.Context, authorID int) ([]int, error)
}

type StoryStore interface {
	CreateStory(ctx context.Context, authorID int, title string) (*models.Story, error)
	GetStory(ctx context.Context, id int) (*models.Story, error)
	UpdateTitle(ctx context.Context, id int, title string) error
	AddCollaborator(ctx context.Context, storyID, authorID int, edit bool) error
	RemoveCollaborator(ctx context.Context, storyID, authorID int) error
	SetShared(ctx context.Context, storyID int, shared bool) ([]int, error)
	CreatePage(ctx context.Context, storyID, authorID int, title, body string) (*models.Page, error)
}

type ActivityAdmin interface {
	GetActivity(ctx context.Context, id int) (*models.ActivityRecord, error)
	SetActive(ctx context.Context, id int, active bool) error
}

// ActivityRecorder is the activity write path (feed.Recorder).
type ActivityRecorder interface {
	SaveActivity(ctx context.Context, a models.NewActivity, extraRecipients ...int) (*models.ActivityRecord, error)
}
