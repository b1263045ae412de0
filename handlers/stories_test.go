package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
)

func (s *APITestSuite) TestCreateStoryRecordsActivity() {
	w := s.request(http.MethodPost, "/stories", s.ada, gin.H{"title": ""})
	s.Equal(http.StatusBadRequest, w.Code)

	id := s.createStory(s.ada, "  Dunes ")
	recs := s.store.Activities()
	s.Require().Len(recs, 1)
	s.Equal(activity.TypeStoryCreated, recs[0].Type)
	s.Equal(models.StoryPayload{StoryID: id, StoryTitle: "Dunes"}, recs[0].Data)

	evs := s.publishedEvents()
	s.Require().Len(evs, 1)
	s.Equal([]int{s.ada.ID}, evs[0].Recipients)
}

func (s *APITestSuite) TestUpdateStoryOwnerOnly() {
	id := s.createStory(s.ada, "Dunes")
	s.Equal(http.StatusForbidden, s.request(http.MethodPatch, storyPath(id, ""), s.bob, gin.H{"title": "Mine"}).Code)
	s.Equal(http.StatusNotFound, s.request(http.MethodPatch, storyPath(9999, ""), s.ada, gin.H{"title": "x"}).Code)

	var story models.Story
	s.decode(s.request(http.MethodPatch, storyPath(id, ""), s.ada, gin.H{"title": "Dune Sea"}), http.StatusOK, &story)
	s.Equal("Dune Sea", story.Title)

	page := s.feed("/activities/timeline?filters=stories", s.ada)
	s.Contains(docTypes(page), "story_updated")
}

func (s *APITestSuite) TestCreatePageNeedsEditAccess() {
	id := s.createStory(s.ada, "Dunes")
	s.addCollaborator(s.ada, id, s.bob, true)
	s.addCollaborator(s.ada, id, s.cy, false)

	s.Equal(http.StatusCreated, s.request(http.MethodPost, storyPath(id, "/pages"), s.bob, gin.H{"title": "Chapter 1", "body": "..."}).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodPost, storyPath(id, "/pages"), s.cy, gin.H{"title": "Chapter 2"}).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodPost, storyPath(id, "/pages"), s.eve, gin.H{"title": "Chapter 3"}).Code)

	page := s.feed("/activities/timeline", s.bob)
	s.Equal([]string{"page_created"}, docTypes(page))
}

func (s *APITestSuite) TestAddCollaboratorValidation() {
	id := s.createStory(s.ada, "Dunes")
	path := storyPath(id, "/collaborators")

	s.Equal(http.StatusBadRequest, s.request(http.MethodPost, path, s.ada, gin.H{"authorId": s.ada.ID}).Code)
	s.Equal(http.StatusBadRequest, s.request(http.MethodPost, path, s.ada, gin.H{}).Code)
	s.Equal(http.StatusNotFound, s.request(http.MethodPost, path, s.ada, gin.H{"authorId": 4242}).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodPost, path, s.bob, gin.H{"authorId": s.cy.ID}).Code)
}

func (s *APITestSuite) TestCollaborationEventsReachParticipants() {
	id := s.createStory(s.ada, "Dunes")
	s.addCollaborator(s.ada, id, s.bob, true)
	s.addCollaborator(s.ada, id, s.cy, true)

	evs := s.publishedEvents()
	s.Require().Len(evs, 3)
	last := evs[2]
	s.Equal(activity.TypeCollaborationAdded, last.ActivityType)
	s.ElementsMatch([]int{s.ada.ID, s.bob.ID, s.cy.ID}, last.Recipients)
	s.JSONEq(`{"storyId":`+strconv.Itoa(id)+`,"storyTitle":"Dunes","actorName":"ada","collaboratorId":`+strconv.Itoa(s.cy.ID)+`,"collaboratorName":"cy","edit":true}`, string(last.Data))
}

func (s *APITestSuite) TestLeaveStory() {
	id := s.createStory(s.ada, "Dunes")
	s.addCollaborator(s.ada, id, s.bob, true)

	s.Equal(http.StatusNotFound, s.request(http.MethodPost, storyPath(id, "/leave"), s.cy, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodPost, storyPath(id, "/leave"), s.bob, nil).Code)

	page := s.feed("/activities/collaboration", s.ada)
	s.Require().NotEmpty(page.Docs)
	s.Equal("collaboration_left_by_someone", page.Docs[0].Type)
	s.Equal(`bob left "Dunes"`, page.Docs[0].Message)

	own := s.feed("/activities/collaboration", s.bob)
	s.Require().NotEmpty(own.Docs)
	s.Equal("collaboration_left_by_you", own.Docs[0].Type)
	s.Equal(`You left "Dunes"`, own.Docs[0].Message)

	s.Empty(s.feed("/activities/collaboration", s.eve).Docs)
}

func (s *APITestSuite) TestGetPrivateStory() {
	id := s.createStory(s.ada, "Dunes")
	s.Equal(http.StatusOK, s.request(http.MethodGet, storyPath(id, ""), s.eve, nil).Code)

	s.Equal(http.StatusOK, s.request(http.MethodPatch, storyPath(id, "/share"), s.ada, gin.H{"shared": false}).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodGet, storyPath(id, ""), s.eve, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodGet, storyPath(id, ""), s.ada, nil).Code)
	s.Equal(http.StatusBadRequest, s.request(http.MethodPatch, storyPath(id, "/share"), s.ada, gin.H{}).Code)
}
