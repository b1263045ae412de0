package models

import "time"

// ActivityCheckpoint holds the last time an author looked at each feed channel.
type ActivityCheckpoint struct {
	Timeline      time.Time `json:"timeline"`
	Social        time.Time `json:"social"`
	Collaboration time.Time `json:"collaboration"`
}

// CheckpointUpdate is a partial checkpoint; nil channels keep their stored value.
type CheckpointUpdate struct {
	Timeline      *time.Time `json:"timeline,omitempty"`
	Social        *time.Time `json:"social,omitempty"`
	Collaboration *time.Time `json:"collaboration,omitempty"`
}

func (u CheckpointUpdate) IsEmpty() bool {
	return u.Timeline == nil && u.Social == nil && u.Collaboration == nil
}

type Author struct {
	ID                int                `json:"id"`
	Username          string             `json:"username"`
	LastActivityCheck ActivityCheckpoint `json:"lastActivityCheck"`
	LastCommentsCheck time.Time          `json:"lastCommentsCheck"`
	CreatedAt         time.Time          `json:"createdAt"`
}
