// Package feedtest provides an in-memory implementation of the feed stores
// for tests.
package feedtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storyfeed-api/models"
	"storyfeed-api/repository"
)

// Store keeps authors, stories, follows and activities in memory. Its
// predicates mirror the SQL in the repository package.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	nextID     int
	authors    map[int]*models.Author
	stories    map[int]*models.Story
	pages      []models.Page
	follows    map[int]map[int]struct{}
	activities []models.ActivityRecord

	// Err, when set, is returned by every read.
	Err error
}

func NewStore() *Store {
	return &Store{
		now:     time.Now,
		authors: map[int]*models.Author{},
		stories: map[int]*models.Story{},
		follows: map[int]map[int]struct{}{},
	}
}

// SetClock replaces the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

// AddAuthor registers an author with an epoch checkpoint.
func (s *Store) AddAuthor(username string) *models.Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	epoch := time.Unix(0, 0).UTC()
	a := &models.Author{
		ID:                s.id(),
		Username:          username,
		LastActivityCheck: models.ActivityCheckpoint{Timeline: epoch, Social: epoch, Collaboration: epoch},
		LastCommentsCheck: epoch,
		CreatedAt:         s.now(),
	}
	s.authors[a.ID] = a
	return a
}

// Insert stores a record as is, assigning an id when it has none.
func (s *Store) Insert(r models.ActivityRecord) models.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.activities = append(s.activities, r)
	return r
}

func (s *Store) Activities() []models.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityRecord(nil), s.activities...)
}

func (s *Store) Create(_ context.Context, a models.NewActivity) (*models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	r := models.ActivityRecord{ID: s.id(), Author: a.Author, Type: a.Type, Active: true, Data: a.Data, Created: now, Updated: now}
	s.activities = append(s.activities, r)
	return &r, nil
}

func (s *Store) GetActivity(_ context.Context, id int) (*models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.activities {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("activity %d: %w", id, repository.ErrNotFound)
}

func (s *Store) SetActive(_ context.Context, id int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.activities {
		if s.activities[i].ID == id {
			s.activities[i].Active = active
			s.activities[i].Updated = s.now()
			return nil
		}
	}
	return fmt.Errorf("activity %d: %w", id, repository.ErrNotFound)
}

func (s *Store) find(match func(models.ActivityRecord) bool) ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.ActivityRecord{}
	for _, r := range s.activities {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) FindByAuthor(_ context.Context, authorID int, since time.Time) ([]models.ActivityRecord, error) {
	return s.find(func(r models.ActivityRecord) bool {
		return r.Author == authorID && r.Active && r.Updated.After(since)
	})
}

func (s *Store) FindSocial(_ context.Context, authorIDs []int, since time.Time) ([]models.ActivityRecord, error) {
	return s.find(func(r models.ActivityRecord) bool {
		if !r.Active {
			return false
		}
		return r.Type == "system_message" || (containsInt(authorIDs, r.Author) && r.Updated.After(since))
	})
}

func (s *Store) FindCollaboration(_ context.Context, storyIDs []int, viewerID int, since time.Time) ([]models.ActivityRecord, error) {
	return s.find(func(r models.ActivityRecord) bool {
		if !r.Active || !r.Updated.After(since) {
			return false
		}
		if id, ok := models.StoryIDOf(r.Data); ok && containsInt(storyIDs, id) {
			return true
		}
		p, ok := r.Data.(models.CollaborationPayload)
		return ok && p.HadCollaborator(viewerID)
	})
}

func (s *Store) GetAuthor(_ context.Context, id int) (*models.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.authors[id]
	if !ok {
		return nil, fmt.Errorf("author %d: %w", id, repository.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) SaveActivityCheck(_ context.Context, id int, u models.CheckpointUpdate) (*models.ActivityCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authors[id]
	if !ok {
		return nil, fmt.Errorf("author %d: %w", id, repository.ErrNotFound)
	}
	if u.Timeline != nil {
		a.LastActivityCheck.Timeline = *u.Timeline
	}
	if u.Social != nil {
		a.LastActivityCheck.Social = *u.Social
	}
	if u.Collaboration != nil {
		a.LastActivityCheck.Collaboration = *u.Collaboration
	}
	cp := a.LastActivityCheck
	return &cp, nil
}

func (s *Store) CreateStory(_ context.Context, authorID int, title string) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	st := &models.Story{ID: s.id(), AuthorID: authorID, Title: title, Shared: true, Active: true, Collaborators: []models.Collaborator{}, CreatedAt: now, UpdatedAt: now}
	s.stories[st.ID] = st
	cp := *st
	return &cp, nil
}

func (s *Store) GetStory(_ context.Context, id int) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok || !st.Active {
		return nil, fmt.Errorf("story %d: %w", id, repository.ErrNotFound)
	}
	cp := *st
	cp.Collaborators = append([]models.Collaborator{}, st.Collaborators...)
	return &cp, nil
}

func (s *Store) UpdateTitle(_ context.Context, id int, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return fmt.Errorf("story %d: %w", id, repository.ErrNotFound)
	}
	st.Title = title
	st.UpdatedAt = s.now()
	return nil
}

func (s *Store) AddCollaborator(_ context.Context, storyID, authorID int, edit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[storyID]
	if !ok {
		return fmt.Errorf("story %d: %w", storyID, repository.ErrNotFound)
	}
	name := ""
	if a, ok := s.authors[authorID]; ok {
		name = a.Username
	}
	for i, c := range st.Collaborators {
		if c.AuthorID == authorID {
			st.Collaborators[i].Edit = edit
			return nil
		}
	}
	st.Collaborators = append(st.Collaborators, models.Collaborator{AuthorID: authorID, Username: name, Edit: edit})
	return nil
}

func (s *Store) RemoveCollaborator(_ context.Context, storyID, authorID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[storyID]
	if !ok {
		return fmt.Errorf("story %d: %w", storyID, repository.ErrNotFound)
	}
	for i, c := range st.Collaborators {
		if c.AuthorID == authorID {
			st.Collaborators = append(st.Collaborators[:i], st.Collaborators[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("collaborator %d on story %d: %w", authorID, storyID, repository.ErrNotFound)
}

func (s *Store) SetShared(_ context.Context, storyID int, shared bool) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[storyID]
	if !ok {
		return nil, fmt.Errorf("story %d: %w", storyID, repository.ErrNotFound)
	}
	st.Shared = shared
	st.UpdatedAt = s.now()
	if shared {
		return nil, nil
	}
	removed := make([]int, 0, len(st.Collaborators))
	for _, c := range st.Collaborators {
		removed = append(removed, c.AuthorID)
	}
	sort.Ints(removed)
	st.Collaborators = []models.Collaborator{}
	return removed, nil
}

func (s *Store) CreatePage(_ context.Context, storyID, authorID int, title, body string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[storyID]; !ok {
		return nil, fmt.Errorf("story %d: %w", storyID, repository.ErrNotFound)
	}
	p := models.Page{ID: s.id(), StoryID: storyID, AuthorID: authorID, Title: title, Body: body, CreatedAt: s.now()}
	s.pages = append(s.pages, p)
	return &p, nil
}

func (s *Store) FindAuthorsCollaborations(_ context.Context, authorID int, includeEditFalse, includeAsAuthor bool) ([]models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Story
	for _, st := range s.stories {
		if !st.Active {
			continue
		}
		if includeAsAuthor && st.AuthorID == authorID {
			out = append(out, *st)
			continue
		}
		if c, ok := st.Collaborator(authorID); ok && (c.Edit || includeEditFalse) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Follow(_ context.Context, followerID, followedID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.follows[followerID]
	if !ok {
		set = map[int]struct{}{}
		s.follows[followerID] = set
	}
	if _, exists := set[followedID]; exists {
		return false, nil
	}
	set[followedID] = struct{}{}
	return true, nil
}

func (s *Store) Unfollow(_ context.Context, followerID, followedID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.follows[followerID][followedID]; !ok {
		return fmt.Errorf("follow %d->%d: %w", followerID, followedID, repository.ErrNotFound)
	}
	delete(s.follows[followerID], followedID)
	return nil
}

func (s *Store) ListFollowed(_ context.Context, authorID int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []int{}
	for id := range s.follows[authorID] {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
