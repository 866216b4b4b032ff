package handler

import (
	"github.com/gin-gonic/gin"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/interfaces/http/dto"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	studio *story.Studio
}

func NewSessionHandler(studio *story.Studio) *SessionHandler {
	return &SessionHandler{studio: studio}
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags Sessions
// @Produce json
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session, err := h.studio.StartSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToSessionResponse(session))
}

// GetSession 获取会话概要
// @Summary 获取会话概要
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.studio.Session(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(session))
}

// DeleteSession 结束会话，记录随之丢弃
// @Summary 结束会话
// @Tags Sessions
// @Param sid path string true "会话 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.studio.EndSession(c.Request.Context(), dto.BindSessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}
