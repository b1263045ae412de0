package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/types"
)

// SystemMessagesHandler broadcasts operator messages to every social feed.
// Messages are recorded under a fixed system author.
type SystemMessagesHandler struct {
	recorder ActivityRecorder
	authorID int
	logger   logging.Logger
}

func NewSystemMessagesHandler(recorder ActivityRecorder, systemAuthorID int, logger logging.Logger) *SystemMessagesHandler {
	return &SystemMessagesHandler{recorder: recorder, authorID: systemAuthorID, logger: logger}
}

func (h *SystemMessagesHandler) Create(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		badRequest(c, "Message must not be blank")
		return
	}
	rec, err := h.recorder.SaveActivity(c.Request.Context(), models.NewActivity{
		Author: h.authorID,
		Type:   activity.TypeSystemMessage,
		Data:   models.SystemPayload{Message: msg},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.WithField("activity_id", rec.ID).Info("system message broadcast")
	c.JSON(http.StatusCreated, types.NewSuccessResponse(rec))
}
