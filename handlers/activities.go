package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"storyfeed-api/models"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/feed"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/pkg/metrics"
	"storyfeed-api/types"
)

type ActivitiesHandler struct {
	engine     *feed.Engine
	authors    CheckpointStore
	follows    FollowStore
	activities ActivityAdmin
	metrics    *metrics.Collector
	logger     logging.Logger
	now        func() time.Time
}

func NewActivitiesHandler(
	engine *feed.Engine,
	authors CheckpointStore,
	follows FollowStore,
	activities ActivityAdmin,
	mc *metrics.Collector,
	logger logging.Logger,
) *ActivitiesHandler {
	return &ActivitiesHandler{
		engine:     engine,
		authors:    authors,
		follows:    follows,
		activities: activities,
		metrics:    mc,
		logger:     logger,
		now:        time.Now,
	}
}

func checkpointFor(cp models.ActivityCheckpoint, ch activity.Channel) time.Time {
	switch ch {
	case activity.ChannelTimeline:
		return cp.Timeline
	case activity.ChannelSocial:
		return cp.Social
	default:
		return cp.Collaboration
	}
}

// resolveSince returns the explicit since parameter or the viewer's stored
// checkpoint for the channel.
func (h *ActivitiesHandler) resolveSince(c *gin.Context, viewer int, ch activity.Channel) (time.Time, error) {
	since, ok, err := parseSince(c.Query("since"), h.now())
	if err != nil || ok {
		return since, err
	}
	author, err := h.authors.GetAuthor(c.Request.Context(), viewer)
	if err != nil {
		return time.Time{}, err
	}
	return checkpointFor(author.LastActivityCheck, ch), nil
}

// query runs the channel query for viewer and reports how many items
// matched. Collaboration results are notifications, the others plain records.
func (h *ActivitiesHandler) query(ctx context.Context, ch activity.Channel, viewer int, since time.Time, filters []string) (any, int, error) {
	switch ch {
	case activity.ChannelTimeline:
		recs, err := h.engine.Timeline(ctx, viewer, since, filters)
		return recs, len(recs), err
	case activity.ChannelSocial:
		followed, err := h.follows.ListFollowed(ctx, viewer)
		if err != nil {
			return nil, 0, fmt.Errorf("list followed authors: %w", err)
		}
		recs, err := h.engine.Social(ctx, followed, since, filters)
		return recs, len(recs), err
	case activity.ChannelCollaboration:
		notes, err := h.engine.Collaboration(ctx, viewer, since, filters)
		return notes, len(notes), err
	}
	return nil, 0, fmt.Errorf("%w: unknown channel %q", feed.ErrInvalidArgument, ch)
}

func sortRecords(recs []models.ActivityRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Updated.Equal(recs[j].Updated) {
			return recs[i].Updated.After(recs[j].Updated)
		}
		return recs[i].ID > recs[j].ID
	})
}

func sortNotifications(notes []activity.CollaborationNotification) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].Updated.Equal(notes[j].Updated) {
			return notes[i].Updated.After(notes[j].Updated)
		}
		return notes[i].ID > notes[j].ID
	})
}

// Feed serves GET /activities/<channel>.
func (h *ActivitiesHandler) Feed(ch activity.Channel) gin.HandlerFunc {
	return func(c *gin.Context) { h.feed(c, ch) }
}

func (h *ActivitiesHandler) feed(c *gin.Context, ch activity.Channel) {
	viewer := viewerID(c)
	since, err := h.resolveSince(c, viewer, ch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page := types.ParsePaginationParams(c)

	result, matched, err := h.query(c.Request.Context(), ch, viewer, since, parseFilters(c))
	h.metrics.FeedServed(string(ch), matched, err)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch docs := result.(type) {
	case []models.ActivityRecord:
		sortRecords(docs)
		c.JSON(http.StatusOK, types.Paginate(docs, page))
	case []activity.CollaborationNotification:
		sortNotifications(docs)
		c.JSON(http.StatusOK, types.Paginate(docs, page))
	}
}

// NewCounts serves GET /activities/new/counts: per-channel counts since the
// viewer's checkpoints, queried in parallel.
func (h *ActivitiesHandler) NewCounts(c *gin.Context) {
	viewer := viewerID(c)
	author, err := h.authors.GetAuthor(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	counts := make([]int, len(activity.Channels))
	g, ctx := errgroup.WithContext(c.Request.Context())
	for i, ch := range activity.Channels {
		g.Go(func() error {
			_, n, err := h.query(ctx, ch, viewer, checkpointFor(author.LastActivityCheck, ch), nil)
			h.metrics.FeedServed(string(ch), n, err)
			if err != nil {
				return fmt.Errorf("%s: %w", ch, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make(map[string]int, len(counts))
	for i, ch := range activity.Channels {
		out[string(ch)] = counts[i]
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(out))
}

// GetCheck serves GET /activities/check.
func (h *ActivitiesHandler) GetCheck(c *gin.Context) {
	author, err := h.authors.GetAuthor(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(author.LastActivityCheck))
}

type saveCheckRequest struct {
	Timeline      *time.Time `json:"timeline"`
	Social        *time.Time `json:"social"`
	Collaboration *time.Time `json:"collaboration"`
}

// validateCheck rejects values before the stored checkpoint or after now.
func validateCheck(stored models.ActivityCheckpoint, u models.CheckpointUpdate, now time.Time) error {
	for _, ch := range activity.Channels {
		var v *time.Time
		switch ch {
		case activity.ChannelTimeline:
			v = u.Timeline
		case activity.ChannelSocial:
			v = u.Social
		case activity.ChannelCollaboration:
			v = u.Collaboration
		}
		if v == nil {
			continue
		}
		if v.After(now) {
			return fmt.Errorf("%w: %s checkpoint is in the future", feed.ErrInvalidArgument, ch)
		}
		if v.Before(checkpointFor(stored, ch)) {
			return fmt.Errorf("%w: %s checkpoint precedes the stored value", feed.ErrInvalidArgument, ch)
		}
	}
	return nil
}

// SaveCheck serves POST /activities/check. Only the channels present in the
// body are overwritten.
func (h *ActivitiesHandler) SaveCheck(c *gin.Context) {
	var req saveCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u := models.CheckpointUpdate{Timeline: req.Timeline, Social: req.Social, Collaboration: req.Collaboration}
	if u.IsEmpty() {
		badRequest(c, "At least one of timeline, social or collaboration is required")
		return
	}

	viewer := viewerID(c)
	author, err := h.authors.GetAuthor(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := validateCheck(author.LastActivityCheck, u, h.now()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	cp, err := h.authors.SaveActivityCheck(c.Request.Context(), viewer, u)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(cp))
}

// DeleteActivity soft-deletes one of the viewer's own records.
func (h *ActivitiesHandler) DeleteActivity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.activities.GetActivity(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if rec.Author != viewerID(c) {
		forbidden(c, "Only the author can delete this activity")
		return
	}
	if !rec.Active {
		c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Activity already deleted"}))
		return
	}
	if err := h.activities.SetActive(c.Request.Context(), id, false); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Activity deleted successfully"}))
}
