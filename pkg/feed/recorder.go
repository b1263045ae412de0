package feed

import (
	"context"
	"fmt"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/events"
	"storyfeed-api/pkg/logging"
)

// Recorder is the activity write path. It stores the record and then
// publishes an ActivityCreated event; delivery failures never fail the write.
type Recorder struct {
	store     ActivityStore
	catalog   *activity.Catalog
	publisher events.Publisher
	logger    logging.Logger
}

func NewRecorder(store ActivityStore, catalog *activity.Catalog, publisher events.Publisher, logger logging.Logger) *Recorder {
	return &Recorder{store: store, catalog: catalog, publisher: publisher, logger: logger}
}

// SaveActivity validates a against the catalog, stores it and notifies the
// author, anyone named in the payload and the extra recipients.
func (r *Recorder) SaveActivity(ctx context.Context, a models.NewActivity, extraRecipients ...int) (*models.ActivityRecord, error) {
	if a.Author <= 0 {
		return nil, fmt.Errorf("%w: activity author is required", ErrInvalidArgument)
	}
	entry, ok := r.catalog.Classify(a.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrInvalidArgument, a.Type)
	}
	if a.Data == nil || a.Data.Kind() != entry.Payload {
		return nil, fmt.Errorf("%w: activity %q needs a %s payload", ErrInvalidArgument, a.Type, entry.Payload)
	}

	record, err := r.store.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("save activity: %w", err)
	}

	if r.publisher != nil {
		ev, err := events.NewActivityCreated(record, Recipients(record, extraRecipients...))
		if err == nil {
			ev.Broadcast = record.Type == activity.TypeSystemMessage
			err = r.publisher.Publish(ctx, ev)
		}
		if err != nil {
			r.logger.WithError(err).WithFields(logging.Fields{
				"activity_id": record.ID,
				"type":        record.Type,
			}).Warn("failed to publish activity event")
		}
	}
	return record, nil
}

// Recipients lists who should hear about record in real time, without
// duplicates, author first.
func Recipients(record *models.ActivityRecord, extra ...int) []int {
	seen := make(map[int]struct{})
	var out []int
	add := func(id int) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(record.Author)
	switch p := record.Data.(type) {
	case models.CollaborationPayload:
		add(p.CollaboratorID)
		for _, id := range p.OldCollaborators {
			add(id)
		}
	case models.FollowPayload:
		add(p.FollowedID)
	}
	for _, id := range extra {
		add(id)
	}
	return out
}
