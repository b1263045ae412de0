package models

import (
	"encoding/json"
	"fmt"
)

// PayloadKind tags the variant stored in an activity's data column.
type PayloadKind string

const (
	PayloadStory         PayloadKind = "story"
	PayloadContent       PayloadKind = "content"
	PayloadSystem        PayloadKind = "system"
	PayloadCollaboration PayloadKind = "collaboration"
	PayloadFollow        PayloadKind = "follow"
)

// Payload is implemented by every activity data variant.
type Payload interface {
	Kind() PayloadKind
}

type StoryPayload struct {
	StoryID    int    `json:"storyId"`
	StoryTitle string `json:"storyTitle"`
	PageID     *int   `json:"pageId,omitempty"`
}

func (StoryPayload) Kind() PayloadKind { return PayloadStory }

type ContentPayload struct {
	StoryID   *int   `json:"storyId,omitempty"`
	ContentID int    `json:"contentId"`
	Title     string `json:"title"`
}

func (ContentPayload) Kind() PayloadKind { return PayloadContent }

type SystemPayload struct {
	Message string `json:"message"`
}

func (SystemPayload) Kind() PayloadKind { return PayloadSystem }

// CollaborationPayload carries the names needed to render viewer-relative
// messages, captured when the activity is written.
type CollaborationPayload struct {
	StoryID          int    `json:"storyId"`
	StoryTitle       string `json:"storyTitle"`
	ActorName        string `json:"actorName"`
	CollaboratorID   int    `json:"collaboratorId,omitempty"`
	CollaboratorName string `json:"collaboratorName,omitempty"`
	Edit             bool   `json:"edit,omitempty"`
	OldCollaborators []int  `json:"oldCollaborators,omitempty"`
}

func (CollaborationPayload) Kind() PayloadKind { return PayloadCollaboration }

// HadCollaborator reports whether id lost access to the story through this activity.
func (p CollaborationPayload) HadCollaborator(id int) bool {
	for _, c := range p.OldCollaborators {
		if c == id {
			return true
		}
	}
	return false
}

// FollowPayload is written with the follower as the record author.
type FollowPayload struct {
	FollowerID   int    `json:"followerId"`
	FollowerName string `json:"followerName"`
	FollowedID   int    `json:"followedId"`
	FollowedName string `json:"followedName"`
}

func (FollowPayload) Kind() PayloadKind { return PayloadFollow }

// DecodePayload unmarshals raw JSON into the variant named by kind.
func DecodePayload(kind PayloadKind, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case PayloadStory:
		var v StoryPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case PayloadContent:
		var v ContentPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case PayloadSystem:
		var v SystemPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case PayloadCollaboration:
		var v CollaborationPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case PayloadFollow:
		var v FollowPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

// StoryIDOf returns the story a payload refers to, if any.
func StoryIDOf(p Payload) (int, bool) {
	switch v := p.(type) {
	case StoryPayload:
		return v.StoryID, true
	case CollaborationPayload:
		return v.StoryID, true
	case ContentPayload:
		if v.StoryID != nil {
			return *v.StoryID, true
		}
	}
	return 0, false
}
