package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
)

func storyPath(id int, suffix string) string {
	return "/stories/" + strconv.Itoa(id) + suffix
}

func (s *APITestSuite) TestFeedRequiresToken() {
	w := s.request(http.MethodGet, "/activities/timeline", nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestTimelineFilters() {
	now := time.Now()
	story := models.StoryPayload{StoryID: 1, StoryTitle: "Dunes"}
	for _, typ := range []string{activity.TypeStoryUpdated, activity.TypeStoryCreated, activity.TypePageCreated} {
		s.store.Insert(models.ActivityRecord{Author: s.ada.ID, Type: typ, Active: true, Data: story, Created: now, Updated: now})
	}
	s.store.Insert(models.ActivityRecord{Author: s.ada.ID, Type: activity.TypeNewContent, Active: true, Data: models.ContentPayload{ContentID: 1, Title: "c"}, Created: now, Updated: now})

	page := s.feed("/activities/timeline?filters=stories", s.ada)
	s.Equal(3, page.Total)
	s.ElementsMatch([]string{"story_updated", "story_created", "page_created"}, docTypes(page))

	page = s.feed("/activities/timeline?filters=contents", s.ada)
	s.Equal([]string{"new_content"}, docTypes(page))

	page = s.feed("/activities/timeline?filters=stories&filters=contents&pageSize=10&page=1", s.ada)
	s.Equal(4, page.Total)
	s.Equal(1, page.Pages)
	s.Equal(10, page.Limit)

	page = s.feed("/activities/timeline", s.bob)
	s.Empty(page.Docs)
	s.NotNil(page.Docs)
}

func (s *APITestSuite) TestTimelineSortsNewestFirstAndPaginates() {
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		s.store.Insert(models.ActivityRecord{Author: s.ada.ID, Type: activity.TypeStoryUpdated, Active: true, Data: models.StoryPayload{StoryID: i + 1}, Created: at, Updated: at})
	}
	first := s.feed("/activities/timeline?pageSize=10", s.ada)
	s.Equal(12, first.Total)
	s.Equal(2, first.Pages)
	s.Len(first.Docs, 10)
	s.JSONEq(`{"storyId":12,"storyTitle":""}`, string(first.Docs[0].Data))

	second := s.feed("/activities/timeline?pageSize=10&page=2", s.ada)
	s.Len(second.Docs, 2)
	s.JSONEq(`{"storyId":1,"storyTitle":""}`, string(second.Docs[1].Data))
}

func (s *APITestSuite) TestSinceParameter() {
	old := time.Now().Add(-3 * time.Hour)
	s.store.Insert(models.ActivityRecord{Author: s.ada.ID, Type: activity.TypeStoryUpdated, Active: true, Data: models.StoryPayload{StoryID: 1}, Created: old, Updated: old})

	s.Equal(1, s.feed("/activities/timeline?since="+url.QueryEscape("-4 hours"), s.ada).Total)
	s.Equal(0, s.feed("/activities/timeline?since="+url.QueryEscape("-2 hours"), s.ada).Total)
	s.Equal(1, s.feed("/activities/timeline?since="+url.QueryEscape(old.Add(-time.Minute).Format(time.RFC3339)), s.ada).Total)

	w := s.request(http.MethodGet, "/activities/timeline?since=yesterday", s.ada, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(w))
}

func (s *APITestSuite) TestSinceDefaultsToCheckpoint() {
	old := time.Now().Add(-time.Hour)
	s.store.Insert(models.ActivityRecord{Author: s.ada.ID, Type: activity.TypeStoryUpdated, Active: true, Data: models.StoryPayload{StoryID: 1}, Created: old, Updated: old})
	s.Equal(1, s.feed("/activities/timeline", s.ada).Total)

	w := s.request(http.MethodPost, "/activities/check", s.ada, map[string]time.Time{"timeline": time.Now().Add(-time.Minute)})
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(0, s.feed("/activities/timeline", s.ada).Total)
}

func (s *APITestSuite) TestSocialDelayAndSystemMessages() {
	for _, target := range []*models.Author{s.bob, s.cy} {
		s.Equal(http.StatusCreated, s.request(http.MethodPost, "/authors/"+strconv.Itoa(target.ID)+"/follow", s.ada, nil).Code)
	}
	s.createStory(s.bob, "Fresh story")
	s.Equal(http.StatusCreated, s.request(http.MethodPost, "/stories", s.cy, map[string]string{"title": "Another"}).Code)

	w := s.request(http.MethodPost, "/system-messages", nil, map[string]string{"message": "Maintenance tonight"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.adminRequest(map[string]string{"message": "Maintenance tonight"})
	s.Equal(http.StatusCreated, w.Code, w.Body.String())

	page := s.feed("/activities/social?since="+url.QueryEscape("-59 minutes"), s.ada)
	s.Equal([]string{"system_message"}, docTypes(page))

	page = s.feed("/activities/social?since="+url.QueryEscape("-61 minutes"), s.ada)
	s.ElementsMatch([]string{"system_message", "story_created", "story_created"}, docTypes(page))

	page = s.feed("/activities/social?since="+url.QueryEscape("-61 minutes"), s.eve)
	s.Equal([]string{"system_message"}, docTypes(page))
}

func (s *APITestSuite) TestCollaborationFeedBranches() {
	storyID := s.createStory(s.ada, "Night Train")
	for _, a := range []*models.Author{s.bob, s.cy, s.dee} {
		s.addCollaborator(s.ada, storyID, a, true)
	}
	w := s.request(http.MethodDelete, storyPath(storyID, "/collaborators/"+strconv.Itoa(s.dee.ID)), s.ada, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	page := s.feed("/activities/collaboration?filters=invitations", s.ada)
	s.Require().Equal(4, page.Total)
	s.Equal("collaboration_removed_by_you", page.Docs[0].Type)
	s.Equal(`You removed dee from "Night Train"`, page.Docs[0].Message)

	page = s.feed("/activities/collaboration", s.dee)
	s.Require().Len(page.Docs, 1)
	s.Equal("collaboration_removed_you", page.Docs[0].Type)
	s.Equal(`ada removed you from "Night Train"`, page.Docs[0].Message)

	page = s.feed("/activities/collaboration", s.bob)
	s.Contains(docTypes(page), "collaboration_removed_by_someone")
	s.Contains(docTypes(page), "collaboration_added_you")

	s.Empty(s.feed("/activities/collaboration", s.eve).Docs)
}

func (s *APITestSuite) TestShareFalseNotifiesFormerCollaboratorsOnly() {
	storyID := s.createStory(s.ada, "Dunes")
	s.addCollaborator(s.ada, storyID, s.bob, false)

	w := s.request(http.MethodPatch, storyPath(storyID, "/share"), s.ada, map[string]bool{"shared": false})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	page := s.feed("/activities/collaboration", s.ada)
	s.NotContains(docTypes(page), "collaboration_share_false_by_you")

	page = s.feed("/activities/collaboration", s.bob)
	s.Require().NotEmpty(page.Docs)
	s.Equal("collaboration_share_false_you", page.Docs[0].Type)

	w = s.request(http.MethodPost, storyPath(storyID, "/collaborators"), s.ada, map[string]any{"authorId": s.cy.ID})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *APITestSuite) TestCheckpoint() {
	var cp models.ActivityCheckpoint
	s.decode(s.request(http.MethodGet, "/activities/check", s.ada, nil), http.StatusOK, &cp)
	s.Equal(time.Unix(0, 0).UTC(), cp.Timeline.UTC())

	social := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	s.decode(s.request(http.MethodPost, "/activities/check", s.ada, map[string]time.Time{"social": social}), http.StatusOK, &cp)
	s.True(social.Equal(cp.Social))
	s.Equal(time.Unix(0, 0).UTC(), cp.Timeline.UTC())
	s.Equal(time.Unix(0, 0).UTC(), cp.Collaboration.UTC())

	w := s.request(http.MethodPost, "/activities/check", s.ada, map[string]time.Time{"social": social.Add(-time.Hour)})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/activities/check", s.ada, map[string]time.Time{"timeline": time.Now().Add(time.Hour)})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/activities/check", s.ada, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	ghost := &models.Author{ID: 999}
	w = s.request(http.MethodGet, "/activities/check", ghost, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.errorCode(w))
}

func (s *APITestSuite) TestNewCounts() {
	s.Equal(http.StatusCreated, s.request(http.MethodPost, "/authors/"+strconv.Itoa(s.bob.ID)+"/follow", s.ada, nil).Code)
	storyID := s.createStory(s.ada, "Dunes")
	s.addCollaborator(s.ada, storyID, s.bob, true)
	s.Equal(http.StatusCreated, s.adminRequest(map[string]string{"message": "hi"}).Code)

	var counts map[string]int
	s.decode(s.request(http.MethodGet, "/activities/new/counts", s.ada, nil), http.StatusOK, &counts)
	s.Equal(map[string]int{"timeline": 1, "social": 1, "collaboration": 1}, counts)
}

func (s *APITestSuite) TestDeleteActivity() {
	s.createStory(s.ada, "Dunes")
	recs := s.store.Activities()
	s.Require().Len(recs, 1)
	path := "/activities/" + strconv.Itoa(recs[0].ID)

	s.Equal(http.StatusForbidden, s.request(http.MethodDelete, path, s.bob, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodDelete, path, s.ada, nil).Code)
	s.Equal(0, s.feed("/activities/timeline", s.ada).Total)
	s.Equal(http.StatusNotFound, s.request(http.MethodDelete, "/activities/424242", s.ada, nil).Code)
	s.Equal(http.StatusBadRequest, s.request(http.MethodDelete, "/activities/abc", s.ada, nil).Code)
}

func (s *APITestSuite) TestStoreFailureIsNotAnEmptyFeed() {
	s.store.Err = errors.New("connection refused")
	w := s.request(http.MethodGet, "/activities/social?since=-1%20hour", s.ada, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("INTERNAL_ERROR", s.errorCode(w))
	s.NotContains(w.Body.String(), "connection refused")
}
