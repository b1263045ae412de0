package activity

import "fmt"

// Branch is the viewer-relative reading of a collaboration activity.
type Branch string

const (
	BranchByYou     Branch = "by_you"
	BranchYou       Branch = "you"
	BranchBySomeone Branch = "by_someone"
)

var Branches = []Branch{BranchByYou, BranchYou, BranchBySomeone}

// MessageParams are the values interpolated into a message template.
type MessageParams struct {
	Title   string
	Actor   string
	Subject string
}

type Template func(MessageParams) string

// MessageSet maps each branch to its template.
type MessageSet map[Branch]Template

// Render runs the template for branch. Missing branches render "".
func (s MessageSet) Render(b Branch, p MessageParams) string {
	if t, ok := s[b]; ok && t != nil {
		return t(p)
	}
	return ""
}

func emptyTemplate(MessageParams) string { return "" }

var collaborationMessages = map[string]MessageSet{
	TypeCollaborationAdded: {
		BranchByYou: func(p MessageParams) string {
			return fmt.Sprintf("You added %s to %q", p.Subject, p.Title)
		},
		BranchYou: func(p MessageParams) string {
			return fmt.Sprintf("%s added you to %q", p.Actor, p.Title)
		},
		BranchBySomeone: func(p MessageParams) string {
			return fmt.Sprintf("%s added %s to %q", p.Actor, p.Subject, p.Title)
		},
	},
	TypeCollaborationRemoved: {
		BranchByYou: func(p MessageParams) string {
			return fmt.Sprintf("You removed %s from %q", p.Subject, p.Title)
		},
		BranchYou: func(p MessageParams) string {
			return fmt.Sprintf("%s removed you from %q", p.Actor, p.Title)
		},
		BranchBySomeone: func(p MessageParams) string {
			return fmt.Sprintf("%s removed %s from %q", p.Actor, p.Subject, p.Title)
		},
	},
	TypeCollaborationLeft: {
		BranchByYou: func(p MessageParams) string {
			return fmt.Sprintf("You left %q", p.Title)
		},
		BranchYou: func(p MessageParams) string {
			return fmt.Sprintf("You left %q", p.Title)
		},
		BranchBySomeone: func(p MessageParams) string {
			return fmt.Sprintf("%s left %q", p.Actor, p.Title)
		},
	},
	TypeCollaborationShareFalse: {
		BranchByYou: func(p MessageParams) string {
			return fmt.Sprintf("You made %q private", p.Title)
		},
		BranchYou: func(p MessageParams) string {
			return fmt.Sprintf("%s made %q private, you are no longer a collaborator", p.Actor, p.Title)
		},
		BranchBySomeone: func(p MessageParams) string {
			return fmt.Sprintf("%s made %q private", p.Actor, p.Title)
		},
	},
}

// MessagesFor returns the templates for a base activity type. Every branch is
// present; types without messages get templates that render "".
func MessagesFor(baseType string) MessageSet {
	out := make(MessageSet, len(Branches))
	known := collaborationMessages[baseType]
	for _, b := range Branches {
		if t, ok := known[b]; ok {
			out[b] = t
		} else {
			out[b] = emptyTemplate
		}
	}
	return out
}
