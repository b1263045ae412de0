// Package feed builds the timeline, social and collaboration activity feeds
// and owns the activity write path.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/logging"
)

// ErrInvalidArgument marks caller errors such as a missing author id.
var ErrInvalidArgument = errors.New("invalid argument")

// ActivityStore is the durable activity collection.
type ActivityStore interface {
	// FindByAuthor returns active records of authorID updated after since.
	FindByAuthor(ctx context.Context, authorID int, since time.Time) ([]models.ActivityRecord, error)
	// FindSocial returns active records of any of authorIDs updated after
	// since, plus every active system message regardless of time.
	FindSocial(ctx context.Context, authorIDs []int, since time.Time) ([]models.ActivityRecord, error)
	// FindCollaboration returns active records updated after since whose
	// data.storyId is in storyIDs or whose data.oldCollaborators holds viewerID.
	FindCollaboration(ctx context.Context, storyIDs []int, viewerID int, since time.Time) ([]models.ActivityRecord, error)
	Create(ctx context.Context, a models.NewActivity) (*models.ActivityRecord, error)
}

type StoryStore interface {
	// FindAuthorsCollaborations returns stories authorID collaborates on with
	// edit rights, optionally also read-only ones and ones they own.
	FindAuthorsCollaborations(ctx context.Context, authorID int, includeEditFalse, includeAsAuthor bool) ([]models.Story, error)
}

// Engine runs the per-channel feed queries.
type Engine struct {
	activities ActivityStore
	stories    StoryStore
	catalog    *activity.Catalog
	delay      activity.DelayPolicy
	logger     logging.Logger
}

func NewEngine(activities ActivityStore, stories StoryStore, catalog *activity.Catalog, logger logging.Logger) *Engine {
	return &Engine{
		activities: activities,
		stories:    stories,
		catalog:    catalog,
		delay:      activity.NewDelayPolicy(catalog),
		logger:     logger,
	}
}

func (e *Engine) Catalog() *activity.Catalog { return e.catalog }

// classified drops records that cannot be classified for channel or do not
// carry a decodable payload.
func (e *Engine) classified(records []models.ActivityRecord, channel activity.Channel, filters []string) []models.ActivityRecord {
	out := make([]models.ActivityRecord, 0, len(records))
	for _, r := range records {
		if _, ok := e.catalog.Classify(r.Type); !ok || r.Data == nil {
			e.logger.WithFields(logging.Fields{
				"activity_id": r.ID,
				"type":        r.Type,
				"channel":     channel,
			}).Debug("skipping unclassifiable activity")
			continue
		}
		if e.catalog.Matches(r.Type, channel, filters) {
			out = append(out, r)
		}
	}
	return out
}

// Timeline returns the author's own activity newer than since.
func (e *Engine) Timeline(ctx context.Context, authorID int, since time.Time, filters []string) ([]models.ActivityRecord, error) {
	if authorID <= 0 {
		return nil, fmt.Errorf("%w: author id is required", ErrInvalidArgument)
	}
	records, err := e.activities.FindByAuthor(ctx, authorID, since)
	if err != nil {
		return nil, fmt.Errorf("find timeline activities: %w", err)
	}
	return e.classified(records, activity.ChannelTimeline, filters), nil
}

// Social returns activity of followed authors plus system broadcasts. The
// store query uses the raw cutoff; delayed types are re-checked per record.
// System messages carry no delay.
func (e *Engine) Social(ctx context.Context, followedIDs []int, since time.Time, filters []string) ([]models.ActivityRecord, error) {
	records, err := e.activities.FindSocial(ctx, followedIDs, since)
	if err != nil {
		return nil, fmt.Errorf("find social activities: %w", err)
	}
	matched := e.classified(records, activity.ChannelSocial, filters)
	out := matched[:0]
	for i := range matched {
		if e.delay.Visible(&matched[i], since) {
			out = append(out, matched[i])
		}
	}
	return out, nil
}

// Collaboration returns viewer-relative notifications for stories the viewer
// owns or collaborates on, plus "made private" events that removed them.
func (e *Engine) Collaboration(ctx context.Context, viewerID int, since time.Time, filters []string) ([]activity.CollaborationNotification, error) {
	if viewerID <= 0 {
		return nil, fmt.Errorf("%w: viewer id is required", ErrInvalidArgument)
	}
	stories, err := e.stories.FindAuthorsCollaborations(ctx, viewerID, true, true)
	if err != nil {
		return nil, fmt.Errorf("find viewer stories: %w", err)
	}
	storyIDs := make([]int, 0, len(stories))
	for _, s := range stories {
		storyIDs = append(storyIDs, s.ID)
	}

	records, err := e.activities.FindCollaboration(ctx, storyIDs, viewerID, since)
	if err != nil {
		return nil, fmt.Errorf("find collaboration activities: %w", err)
	}

	matched := e.classified(records, activity.ChannelCollaboration, filters)
	out := make([]activity.CollaborationNotification, 0, len(matched))
	for _, r := range matched {
		if !activity.IsAllowedToReceiveActivity(r, viewerID) {
			continue
		}
		out = append(out, activity.ResolveOne(r, viewerID))
	}
	return out, nil
}
