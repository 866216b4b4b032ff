package handler

import (
	"github.com/gin-gonic/gin"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/interfaces/http/dto"
)

// SelectionHandler 修订上下文选择集
type SelectionHandler struct {
	studio *story.Studio
}

func NewSelectionHandler(studio *story.Studio) *SelectionHandler {
	return &SelectionHandler{studio: studio}
}

// GetSelection 按选择顺序返回被选中的记录
// @Summary 当前选择集
// @Tags Selection
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SelectionResponse]
// @Router /v1/sessions/{sid}/selection [get]
func (h *SelectionHandler) GetSelection(c *gin.Context) {
	records, err := h.studio.Selection(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]string, 0, len(records))
	stories := make([]*dto.StoryResponse, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
		stories = append(stories, dto.ToStoryResponse(r, true))
	}
	dto.Success(c, &dto.SelectionResponse{Selection: ids, Stories: stories})
}

// ToggleSelection 切换单条记录的选中状态
// @Summary 切换选中
// @Tags Selection
// @Produce json
// @Param sid path string true "会话 ID"
// @Param id path string true "记录 ID"
// @Success 200 {object} dto.Response[dto.ToggleSelectionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/selection/{id} [post]
func (h *SelectionHandler) ToggleSelection(c *gin.Context) {
	storyID := dto.BindStoryID(c)
	selected, selection, err := h.studio.ToggleSelection(c.Request.Context(), dto.BindSessionID(c), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.ToggleSelectionResponse{
		StoryID:   storyID,
		Selected:  selected,
		Selection: selection,
	})
}

// ClearSelection 清空选择集
// @Summary 清空选择集
// @Tags Selection
// @Param sid path string true "会话 ID"
// @Success 204
// @Router /v1/sessions/{sid}/selection [delete]
func (h *SelectionHandler) ClearSelection(c *gin.Context) {
	if err := h.studio.ClearSelection(c.Request.Context(), dto.BindSessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}
