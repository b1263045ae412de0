package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/types"
)

// StoriesHandler owns the story and collaboration write paths. Each
// mutation is followed by the matching activity record.
type StoriesHandler struct {
	stories  StoryStore
	authors  AuthorStore
	recorder ActivityRecorder
	logger   logging.Logger
}

func NewStoriesHandler(stories StoryStore, authors AuthorStore, recorder ActivityRecorder, logger logging.Logger) *StoriesHandler {
	return &StoriesHandler{stories: stories, authors: authors, recorder: recorder, logger: logger}
}

// record writes the activity for a mutation that already succeeded. A failed
// write is reported to the caller but the mutation stands.
func (h *StoriesHandler) record(ctx context.Context, a models.NewActivity, extra ...int) error {
	_, err := h.recorder.SaveActivity(ctx, a, extra...)
	if err != nil {
		h.logger.WithError(err).WithFields(logging.Fields{
			"author": a.Author,
			"type":   a.Type,
		}).Error("mutation applied but activity was not recorded")
	}
	return err
}

// loadStory fetches the story in the path and checks the viewer owns it when
// ownerOnly is set.
func (h *StoriesHandler) loadStory(c *gin.Context, ownerOnly bool) (*models.Story, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	story, err := h.stories.GetStory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if ownerOnly && story.AuthorID != viewerID(c) {
		forbidden(c, "Only the story owner can do this")
		return nil, false
	}
	return story, true
}

func (h *StoriesHandler) username(ctx context.Context, id int) (string, error) {
	a, err := h.authors.GetAuthor(ctx, id)
	if err != nil {
		return "", err
	}
	return a.Username, nil
}

type titleRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

func (h *StoriesHandler) CreateStory(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	viewer := viewerID(c)
	story, err := h.stories.CreateStory(c.Request.Context(), viewer, strings.TrimSpace(req.Title))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.record(c.Request.Context(), models.NewActivity{
		Author: viewer,
		Type:   activity.TypeStoryCreated,
		Data:   models.StoryPayload{StoryID: story.ID, StoryTitle: story.Title},
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(story))
}

func (h *StoriesHandler) GetStory(c *gin.Context) {
	story, ok := h.loadStory(c, false)
	if !ok {
		return
	}
	viewer := viewerID(c)
	if _, member := story.Collaborator(viewer); story.AuthorID != viewer && !member && !story.Shared {
		forbidden(c, "Story is private")
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(story))
}

func (h *StoriesHandler) UpdateStory(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	story, ok := h.loadStory(c, true)
	if !ok {
		return
	}
	title := strings.TrimSpace(req.Title)
	if err := h.stories.UpdateTitle(c.Request.Context(), story.ID, title); err != nil {
		respondError(c, h.logger, err)
		return
	}
	story.Title = title
	if err := h.record(c.Request.Context(), models.NewActivity{
		Author: story.AuthorID,
		Type:   activity.TypeStoryUpdated,
		Data:   models.StoryPayload{StoryID: story.ID, StoryTitle: title},
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(story))
}

type pageRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body"`
}

func (h *StoriesHandler) CreatePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	story, ok := h.loadStory(c, false)
	if !ok {
		return
	}
	viewer := viewerID(c)
	if !story.CanEdit(viewer) {
		forbidden(c, "No edit access to this story")
		return
	}
	page, err := h.stories.CreatePage(c.Request.Context(), story.ID, viewer, strings.TrimSpace(req.Title), req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	pageID := page.ID
	if err := h.record(c.Request.Context(), models.NewActivity{
		Author: viewer,
		Type:   activity.TypePageCreated,
		Data:   models.StoryPayload{StoryID: story.ID, StoryTitle: story.Title, PageID: &pageID},
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(page))
}

type collaboratorRequest struct {
	AuthorID int  `json:"authorId" binding:"required,min=1"`
	Edit     bool `json:"edit"`
}

// AddCollaborator adds or updates a collaborator on a shared story.
func (h *StoriesHandler) AddCollaborator(c *gin.Context) {
	var req collaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	story, ok := h.loadStory(c, true)
	if !ok {
		return
	}
	if req.AuthorID == story.AuthorID {
		badRequest(c, "The owner cannot be a collaborator")
		return
	}
	if !story.Shared {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "Story is private; share it first"))
		return
	}
	ctx := c.Request.Context()
	subject, err := h.username(ctx, req.AuthorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	actor, err := h.username(ctx, story.AuthorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.stories.AddCollaborator(ctx, story.ID, req.AuthorID, req.Edit); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.record(ctx, models.NewActivity{
		Author: story.AuthorID,
		Type:   activity.TypeCollaborationAdded,
		Data: models.CollaborationPayload{
			StoryID:          story.ID,
			StoryTitle:       story.Title,
			ActorName:        actor,
			CollaboratorID:   req.AuthorID,
			CollaboratorName: subject,
			Edit:             req.Edit,
		},
	}, story.Participants()...); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(models.Collaborator{AuthorID: req.AuthorID, Username: subject, Edit: req.Edit}))
}

// RemoveCollaborator drops a collaborator. The subject is listed in
// oldCollaborators so the removal stays visible to them afterwards.
func (h *StoriesHandler) RemoveCollaborator(c *gin.Context) {
	story, ok := h.loadStory(c, true)
	if !ok {
		return
	}
	subjectID, ok := idParam(c, "authorId")
	if !ok {
		return
	}
	collab, member := story.Collaborator(subjectID)
	if !member {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Not a collaborator on this story"))
		return
	}
	ctx := c.Request.Context()
	actor, err := h.username(ctx, story.AuthorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.stories.RemoveCollaborator(ctx, story.ID, subjectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.record(ctx, models.NewActivity{
		Author: story.AuthorID,
		Type:   activity.TypeCollaborationRemoved,
		Data: models.CollaborationPayload{
			StoryID:          story.ID,
			StoryTitle:       story.Title,
			ActorName:        actor,
			CollaboratorID:   subjectID,
			CollaboratorName: collab.Username,
			Edit:             collab.Edit,
			OldCollaborators: []int{subjectID},
		},
	}, story.Participants()...); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Collaborator removed"}))
}

// Leave removes the viewer from a story they collaborate on. The leaver is
// both actor and subject of the activity.
func (h *StoriesHandler) Leave(c *gin.Context) {
	story, ok := h.loadStory(c, false)
	if !ok {
		return
	}
	viewer := viewerID(c)
	collab, member := story.Collaborator(viewer)
	if !member {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Not a collaborator on this story"))
		return
	}
	ctx := c.Request.Context()
	if err := h.stories.RemoveCollaborator(ctx, story.ID, viewer); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.record(ctx, models.NewActivity{
		Author: viewer,
		Type:   activity.TypeCollaborationLeft,
		Data: models.CollaborationPayload{
			StoryID:          story.ID,
			StoryTitle:       story.Title,
			ActorName:        collab.Username,
			CollaboratorID:   viewer,
			CollaboratorName: collab.Username,
			Edit:             collab.Edit,
			OldCollaborators: []int{viewer},
		},
	}, story.Participants()...); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Left story"}))
}

type shareRequest struct {
	Shared *bool `json:"shared" binding:"required"`
}

// SetShared toggles sharing. Making a story private drops every collaborator
// and records who was removed.
func (h *StoriesHandler) SetShared(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	story, ok := h.loadStory(c, true)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	removed, err := h.stories.SetShared(ctx, story.ID, *req.Shared)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(removed) > 0 {
		actor, err := h.username(ctx, story.AuthorID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if err := h.record(ctx, models.NewActivity{
			Author: story.AuthorID,
			Type:   activity.TypeCollaborationShareFalse,
			Data: models.CollaborationPayload{
				StoryID:          story.ID,
				StoryTitle:       story.Title,
				ActorName:        actor,
				OldCollaborators: removed,
			},
		}); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"shared": *req.Shared, "removedCollaborators": removed}))
}
