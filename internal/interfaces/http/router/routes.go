package router

import (
	"github.com/gin-gonic/gin"

	"z-story-studio/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	v1.GET("/models", h.Model.ListModels)
	v1.GET("/ui/defaults", h.UI.Defaults)

	v1.POST("/sessions", h.Session.CreateSession)

	sessions := v1.Group("/sessions/:sid", middleware.SessionContext())
	{
		sessions.GET("", h.Session.GetSession)
		sessions.DELETE("", h.Session.DeleteSession)

		// 生成与历史
		sessions.GET("/stories", h.Story.ListStories)
		sessions.POST("/stories", h.Story.GenerateStory)
		sessions.GET("/stories/:id", h.Story.GetStory)
		sessions.POST("/revisions", h.Story.ReviseStory)

		// 修订上下文
		sessions.GET("/selection", h.Selection.GetSelection)
		sessions.DELETE("/selection", h.Selection.ClearSelection)
		sessions.POST("/selection/:id", h.Selection.ToggleSelection)
	}
}
