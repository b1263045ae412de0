package activity

import "storyfeed-api/models"

// CollaborationNotification is a collaboration activity as seen by one viewer.
// Type shadows the record type with the branch-suffixed outward type.
type CollaborationNotification struct {
	models.ActivityRecord
	Type     string `json:"type"`
	BaseType string `json:"baseType"`
	Branch   Branch `json:"branch"`
	Message  string `json:"message"`
}

// BranchFor classifies record relative to viewerID. Acting on oneself counts
// as by_you.
func BranchFor(record models.ActivityRecord, viewerID int) Branch {
	if record.Author == viewerID {
		return BranchByYou
	}
	if p, ok := record.Data.(models.CollaborationPayload); ok {
		if p.CollaboratorID == viewerID || p.HadCollaborator(viewerID) {
			return BranchYou
		}
	}
	return BranchBySomeone
}

func messageParams(record models.ActivityRecord) MessageParams {
	p, ok := record.Data.(models.CollaborationPayload)
	if !ok {
		return MessageParams{}
	}
	return MessageParams{Title: p.StoryTitle, Actor: p.ActorName, Subject: p.CollaboratorName}
}

// ResolveOne renders a single record for viewerID.
func ResolveOne(record models.ActivityRecord, viewerID int) CollaborationNotification {
	branch := BranchFor(record, viewerID)
	return CollaborationNotification{
		ActivityRecord: record,
		Type:           record.Type + "_" + string(branch),
		BaseType:       record.Type,
		Branch:         branch,
		Message:        MessagesFor(record.Type).Render(branch, messageParams(record)),
	}
}

// Resolve renders records for viewerID, keeping their order.
func Resolve(records []models.ActivityRecord, viewerID int) []CollaborationNotification {
	out := make([]CollaborationNotification, 0, len(records))
	for _, r := range records {
		out = append(out, ResolveOne(r, viewerID))
	}
	return out
}

// IsAllowedToReceiveActivity hides a story owner's own "made private" event
// from them.
func IsAllowedToReceiveActivity(record models.ActivityRecord, viewerID int) bool {
	if record.Type == TypeCollaborationShareFalse && record.Author == viewerID {
		return false
	}
	return true
}
