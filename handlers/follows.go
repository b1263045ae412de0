package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/types"
)

type FollowsHandler struct {
	follows  FollowStore
	authors  AuthorStore
	recorder ActivityRecorder
	logger   logging.Logger
}

func NewFollowsHandler(follows FollowStore, authors AuthorStore, recorder ActivityRecorder, logger logging.Logger) *FollowsHandler {
	return &FollowsHandler{follows: follows, authors: authors, recorder: recorder, logger: logger}
}

// Follow records author_followed only when the relation is new.
func (h *FollowsHandler) Follow(c *gin.Context) {
	targetID, ok := idParam(c, "id")
	if !ok {
		return
	}
	viewer := viewerID(c)
	if targetID == viewer {
		badRequest(c, "You cannot follow yourself")
		return
	}
	ctx := c.Request.Context()
	target, err := h.authors.GetAuthor(ctx, targetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	follower, err := h.authors.GetAuthor(ctx, viewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created, err := h.follows.Follow(ctx, viewer, targetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"following": true}))
		return
	}
	if _, err := h.recorder.SaveActivity(ctx, models.NewActivity{
		Author: viewer,
		Type:   activity.TypeAuthorFollowed,
		Data: models.FollowPayload{
			FollowerID:   viewer,
			FollowerName: follower.Username,
			FollowedID:   target.ID,
			FollowedName: target.Username,
		},
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(gin.H{"following": true}))
}

func (h *FollowsHandler) Unfollow(c *gin.Context) {
	targetID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.follows.Unfollow(c.Request.Context(), viewerID(c), targetID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"following": false}))
}

func (h *FollowsHandler) ListFollowed(c *gin.Context) {
	ids, err := h.follows.ListFollowed(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(ids))
}
