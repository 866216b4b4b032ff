package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/interfaces/http/dto"
)

// StoryHandler 故事生成与历史
type StoryHandler struct {
	studio *story.Studio
}

func NewStoryHandler(studio *story.Studio) *StoryHandler {
	return &StoryHandler{studio: studio}
}

// GenerateStory 生成新故事
// @Summary 生成新故事
// @Tags Stories
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.GenerateStoryRequest true "生成参数"
// @Success 201 {object} dto.Response[dto.StoryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/stories [post]
func (h *StoryHandler) GenerateStory(c *gin.Context) {
	var req dto.GenerateStoryRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.studio.Generate(c.Request.Context(), dto.BindSessionID(c), &story.GenerateInput{
		SystemPrompt: req.SystemPrompt,
		Instruction:  req.Instruction,
		Model:        entity.ModelID(strings.TrimSpace(req.Model)),
		Temperature:  req.Temperature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToStoryResponse(rec, false))
}

// ReviseStory 以选择集为上下文生成修订版本，成功后选择集被清空
// @Summary 生成修订版本
// @Tags Stories
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.ReviseStoryRequest true "修订参数"
// @Success 201 {object} dto.Response[dto.StoryResponse]
// @Router /v1/sessions/{sid}/revisions [post]
func (h *StoryHandler) ReviseStory(c *gin.Context) {
	var req dto.ReviseStoryRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.studio.Revise(c.Request.Context(), dto.BindSessionID(c), &story.ReviseInput{
		SystemPrompt:        req.SystemPrompt,
		RevisionInstruction: req.RevisionInstruction,
		Model:               entity.ModelID(strings.TrimSpace(req.Model)),
		Temperature:         req.Temperature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToStoryResponse(rec, false))
}

// ListStories 历史记录，?order=desc 时最新在前
// @Summary 历史记录
// @Tags Stories
// @Produce json
// @Param sid path string true "会话 ID"
// @Param order query string false "asc 或 desc" default(asc)
// @Success 200 {object} dto.Response[dto.StoryListResponse]
// @Router /v1/sessions/{sid}/stories [get]
func (h *StoryHandler) ListStories(c *gin.Context) {
	records, selection, err := h.studio.Stories(c.Request.Context(), dto.BindSessionID(c), dto.BindNewestFirst(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStoryListResponse(records, selection))
}

// GetStory 单条记录
// @Summary 单条记录
// @Tags Stories
// @Produce json
// @Param sid path string true "会话 ID"
// @Param id path string true "记录 ID"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/stories/{id} [get]
func (h *StoryHandler) GetStory(c *gin.Context) {
	rec, selected, err := h.studio.Story(c.Request.Context(), dto.BindSessionID(c), dto.BindStoryID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStoryResponse(rec, selected))
}
