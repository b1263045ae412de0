package events

import (
	"context"
	"encoding/json"
	"time"

	"storyfeed-api/models"
)

const TypeActivityCreated = "activity.created"

// ActivityCreated is published after an activity record is stored. Data is
// kept raw so the event survives a JSON round trip between instances;
// changes to this struct should be additive.
type ActivityCreated struct {
	Type         string          `json:"type"`
	ActivityID   int             `json:"activityId"`
	Author       int             `json:"author"`
	ActivityType string          `json:"activityType"`
	Data         json.RawMessage `json:"data"`
	Created      time.Time       `json:"created"`
	Recipients   []int           `json:"recipients"`
	Broadcast    bool            `json:"broadcast,omitempty"`
}

// NewActivityCreated builds the event for record addressed to recipients.
func NewActivityCreated(record *models.ActivityRecord, recipients []int) (ActivityCreated, error) {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return ActivityCreated{}, err
	}
	return ActivityCreated{
		Type:         TypeActivityCreated,
		ActivityID:   record.ID,
		Author:       record.Author,
		ActivityType: record.Type,
		Data:         data,
		Created:      record.Created,
		Recipients:   recipients,
	}, nil
}

// Publisher accepts domain events from the write path.
type Publisher interface {
	Publish(ctx context.Context, ev ActivityCreated) error
}

// Handler consumes events. Handlers run on the publisher's goroutine and
// must not block.
type Handler func(ctx context.Context, ev ActivityCreated)
