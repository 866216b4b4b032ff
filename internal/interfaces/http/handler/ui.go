package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"z-story-studio/internal/config"
	"z-story-studio/internal/interfaces/http/dto"
	"z-story-studio/internal/interfaces/http/web"
	workflowprompt "z-story-studio/internal/workflow/prompt"
	apperrors "z-story-studio/pkg/errors"
)

// UIHandler 页面与预填内容
type UIHandler struct {
	cfg     config.UIConfig
	prompts *workflowprompt.Registry
}

func NewUIHandler(cfg config.UIConfig, prompts *workflowprompt.Registry) *UIHandler {
	return &UIHandler{cfg: cfg, prompts: prompts}
}

// Index 单页前端
func (h *UIHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index())
}

// Defaults 页面预填内容，配置为空的项取内置模板
// @Summary 页面默认值
// @Tags UI
// @Produce json
// @Success 200 {object} dto.Response[dto.UIDefaultsResponse]
// @Router /v1/ui/defaults [get]
func (h *UIHandler) Defaults(c *gin.Context) {
	d, err := h.prompts.Defaults()
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to load prompt defaults"))
		return
	}

	dto.Success(c, &dto.UIDefaultsResponse{
		SystemPrompt:         firstNonEmpty(h.cfg.DefaultSystemPrompt, d.SystemPrompt),
		Instruction:          firstNonEmpty(h.cfg.DefaultInstruction, d.Instruction),
		RevisionSystemPrompt: firstNonEmpty(h.cfg.DefaultRevisionSystemPrompt, d.RevisionSystemPrompt),
		RevisionInstruction:  firstNonEmpty(h.cfg.DefaultRevisionInstruction, d.RevisionInstruction),
		Temperature:          h.cfg.DefaultTemperature,
		MinTemperature:       0,
		MaxTemperature:       2,
		TemperatureStep:      0.1,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
