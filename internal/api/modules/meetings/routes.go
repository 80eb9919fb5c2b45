package meetings

import (
	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the routes for the meetings module. When apiKey is
// set every route requires it in the X-API-KEY header
func RegisterRoutes(g *gin.RouterGroup, ctrl *Controller, apiKey string) {
	group := g.Group("/meetings")
	if apiKey != "" {
		group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(func(key string) bool {
			return key == apiKey
		}))
	}

	// Meetings
	group.POST("", ctrl.CreateMeeting)
	group.GET("", ctrl.ListMeetings)
	group.GET("/:id", ctrl.GetMeeting)
	group.DELETE("/:id", ctrl.DeleteMeeting)

	// Participants and artifacts
	group.POST("/:id/participants", ctrl.AddParticipants)
	group.GET("/:id/participants", ctrl.ListParticipants)
	group.POST("/:id/artifacts/text", ctrl.AddTextArtifact)
	group.POST("/:id/artifacts/audio", ctrl.AddAudioArtifact)
	group.POST("/:id/artifacts/image", ctrl.AddImageArtifact)
	group.GET("/:id/artifacts", ctrl.ListArtifacts)

	// Derived records
	group.POST("/:id/summary", ctrl.AddSummary)
	group.GET("/:id/summary", ctrl.ListSummaries)
	group.POST("/:id/decisions", ctrl.AddDecision)
	group.GET("/:id/decisions", ctrl.ListDecisions)
	group.POST("/:id/action-items", ctrl.AddActionItem)
	group.GET("/:id/action-items", ctrl.ListActionItems)
	group.GET("/:id/action-items/ical", ctrl.ExportActionItems)
	group.PATCH("/:id/action-items/:itemId", ctrl.UpdateActionItem)

	// Processing and on-demand features
	group.POST("/:id/process", ctrl.Process)
	group.GET("/:id/process", ctrl.ProcessingStatus)
	group.POST("/:id/chat", ctrl.Chat)
	group.GET("/:id/avatar", ctrl.Avatar)
	group.GET("/:id/action-flow", ctrl.ActionFlow)
}
