package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyfeed-api/models"
)

func followPath(a *models.Author) string {
	return "/authors/" + strconv.Itoa(a.ID) + "/follow"
}

func (s *APITestSuite) TestFollowAndUnfollow() {
	s.Equal(http.StatusBadRequest, s.request(http.MethodPost, followPath(s.ada), s.ada, nil).Code)
	s.Equal(http.StatusNotFound, s.request(http.MethodPost, "/authors/4242/follow", s.ada, nil).Code)

	s.Equal(http.StatusCreated, s.request(http.MethodPost, followPath(s.bob), s.ada, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodPost, followPath(s.bob), s.ada, nil).Code)
	s.Len(s.store.Activities(), 1)

	var followed []int
	s.decode(s.request(http.MethodGet, "/authors/me/following", s.ada, nil), http.StatusOK, &followed)
	s.Equal([]int{s.bob.ID}, followed)

	evs := s.publishedEvents()
	s.Require().Len(evs, 1)
	s.Equal([]int{s.ada.ID, s.bob.ID}, evs[0].Recipients)

	s.Equal(http.StatusOK, s.request(http.MethodDelete, followPath(s.bob), s.ada, nil).Code)
	s.Equal(http.StatusNotFound, s.request(http.MethodDelete, followPath(s.bob), s.ada, nil).Code)
}

func (s *APITestSuite) TestFollowerSeesFollowActivity() {
	s.Equal(http.StatusCreated, s.request(http.MethodPost, followPath(s.ada), s.cy, nil).Code)
	s.Equal(http.StatusCreated, s.request(http.MethodPost, followPath(s.bob), s.ada, nil).Code)

	page := s.feed("/activities/social?filters=follows", s.cy)
	s.Equal([]string{"author_followed"}, docTypes(page))
	s.JSONEq(`{"followerId":`+strconv.Itoa(s.ada.ID)+`,"followerName":"ada","followedId":`+strconv.Itoa(s.bob.ID)+`,"followedName":"bob"}`, string(page.Docs[0].Data))
}

func (s *APITestSuite) TestSystemMessageValidation() {
	s.Equal(http.StatusBadRequest, s.adminRequest(gin.H{"message": "   "}).Code)
	s.Equal(http.StatusBadRequest, s.adminRequest(gin.H{}).Code)
}

func (s *APITestSuite) TestSystemMessageIsBroadcast() {
	s.Require().Equal(http.StatusCreated, s.adminRequest(gin.H{"message": "Maintenance tonight"}).Code)

	evs := s.publishedEvents()
	s.Require().Len(evs, 1)
	s.Equal("system_message", evs[0].ActivityType)
	s.True(evs[0].Broadcast)
}

func (s *APITestSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"ok"`)
}
