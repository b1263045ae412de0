package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storyfeed-api/middleware"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/feed"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/repository"
	"storyfeed-api/types"
)

// respondError maps sentinel errors to status codes. Anything unrecognised
// is logged and reported as a 500 without the underlying message.
func respondError(c *gin.Context, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, feed.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, err.Error()))
	default:
		_ = c.Error(err)
		logger.WithError(err).WithFields(logging.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(middleware.RequestIDKey),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Internal server error"))
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, message))
}

func forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, message))
}

func viewerID(c *gin.Context) int {
	return c.GetInt(middleware.AuthorIDKey)
}

// idParam reads a positive integer path parameter.
func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// parseSince reads the since query parameter: RFC3339 or a relative
// expression such as "-59 minutes" evaluated against now. ok is false when
// the parameter is absent.
func parseSince(raw string, now time.Time) (since time.Time, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
		return t, true, nil
	}
	if activity.IsRelativeExpr(raw) {
		return activity.ShiftDate(now, raw), true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: since must be RFC3339 or a relative expression like \"-2 hours\"", feed.ErrInvalidArgument)
}

// parseFilters accepts both filters=a,b and repeated filters parameters.
func parseFilters(c *gin.Context) []string {
	var out []string
	for _, v := range c.QueryArray("filters") {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}
