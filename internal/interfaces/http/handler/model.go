package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/interfaces/http/dto"
)

// ModelHandler 模型目录
type ModelHandler struct {
	catalog *entity.Catalog
	creds   story.CredentialSource
}

func NewModelHandler(catalog *entity.Catalog, creds story.CredentialSource) *ModelHandler {
	return &ModelHandler{catalog: catalog, creds: creds}
}

// ListModels 列出模型及其凭证可用性
// @Summary 模型列表
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[[]dto.ModelResponse]
// @Router /v1/models [get]
func (h *ModelHandler) ListModels(c *gin.Context) {
	specs := h.catalog.All()
	out := make([]*dto.ModelResponse, 0, len(specs))
	for _, spec := range specs {
		_, ok := h.creds.Credential(spec.Family)
		reason := ""
		if !ok {
			reason = fmt.Sprintf("%s is not set", h.creds.KeyName(spec.Family))
		}
		out = append(out, dto.ToModelResponse(spec, ok, reason))
	}
	dto.Success(c, out)
}
