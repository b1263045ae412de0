package models

import "time"

type Story struct {
	ID            int            `json:"id"`
	AuthorID      int            `json:"authorId"`
	Title         string         `json:"title"`
	Shared        bool           `json:"shared"`
	Active        bool           `json:"-"`
	Collaborators []Collaborator `json:"collaborators"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type Collaborator struct {
	AuthorID int    `json:"authorId"`
	Username string `json:"username"`
	Edit     bool   `json:"edit"`
}

// Collaborator returns the collaborator entry for authorID, if any.
func (s *Story) Collaborator(authorID int) (Collaborator, bool) {
	for _, c := range s.Collaborators {
		if c.AuthorID == authorID {
			return c, true
		}
	}
	return Collaborator{}, false
}

// CanEdit reports whether authorID may add content to the story.
func (s *Story) CanEdit(authorID int) bool {
	if s.AuthorID == authorID {
		return true
	}
	c, ok := s.Collaborator(authorID)
	return ok && c.Edit
}

// Participants returns the owner and every collaborator id.
func (s *Story) Participants() []int {
	ids := make([]int, 0, len(s.Collaborators)+1)
	ids = append(ids, s.AuthorID)
	for _, c := range s.Collaborators {
		ids = append(ids, c.AuthorID)
	}
	return ids
}

type Page struct {
	ID        int       `json:"id"`
	StoryID   int       `json:"storyId"`
	AuthorID  int       `json:"authorId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}
