package handlers

import (
	"github.com/gin-gonic/gin"

	"storyfeed-api/pkg/activity"
)

// Routes bundles the handlers and guards mounted by RegisterRoutes. Nil
// optional handlers (WebSocket, Metrics, RateLimit) are skipped.
type Routes struct {
	Activities     *ActivitiesHandler
	Stories        *StoriesHandler
	Follows        *FollowsHandler
	SystemMessages *SystemMessagesHandler

	Auth      gin.HandlerFunc
	Admin     gin.HandlerFunc
	RateLimit gin.HandlerFunc
	Health    gin.HandlerFunc
	Metrics   gin.HandlerFunc
	WebSocket gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, rt Routes) {
	r.GET("/health", rt.Health)
	if rt.Metrics != nil {
		r.GET("/metrics", rt.Metrics)
	}

	r.POST("/system-messages", rt.Admin, rt.SystemMessages.Create)

	authorized := r.Group("/")
	authorized.Use(rt.Auth)
	if rt.RateLimit != nil {
		authorized.Use(rt.RateLimit)
	}

	if rt.WebSocket != nil {
		authorized.GET("/ws", rt.WebSocket)
	}

	for _, ch := range activity.Channels {
		authorized.GET("/activities/"+string(ch), rt.Activities.Feed(ch))
	}
	authorized.GET("/activities/new/counts", rt.Activities.NewCounts)
	authorized.GET("/activities/check", rt.Activities.GetCheck)
	authorized.POST("/activities/check", rt.Activities.SaveCheck)
	authorized.DELETE("/activities/:id", rt.Activities.DeleteActivity)

	authorized.POST("/stories", rt.Stories.CreateStory)
	authorized.GET("/stories/:id", rt.Stories.GetStory)
	authorized.PATCH("/stories/:id", rt.Stories.UpdateStory)
	authorized.POST("/stories/:id/pages", rt.Stories.CreatePage)
	authorized.POST("/stories/:id/collaborators", rt.Stories.AddCollaborator)
	authorized.DELETE("/stories/:id/collaborators/:authorId", rt.Stories.RemoveCollaborator)
	authorized.POST("/stories/:id/leave", rt.Stories.Leave)
	authorized.PATCH("/stories/:id/share", rt.Stories.SetShared)

	authorized.GET("/authors/me/following", rt.Follows.ListFollowed)
	authorized.POST("/authors/:id/follow", rt.Follows.Follow)
	authorized.DELETE("/authors/:id/follow", rt.Follows.Unfollow)
}
