// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-story-studio/internal/interfaces/http/dto"
	apperrors "z-story-studio/pkg/errors"
	"z-story-studio/pkg/logger"
)

// respondError 统一错误出口，日志只在这里记录一次
func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	appErr := apperrors.AsAppError(err)

	switch appErr.Code {
	case apperrors.CodeInvalidParam,
		apperrors.CodeNotFound,
		apperrors.CodeSessionNotFound,
		apperrors.CodeRecordNotFound,
		apperrors.CodeConflict,
		apperrors.CodeGenerationInProgress:
		logger.Debug(ctx, "request rejected", "code", string(appErr.Code), "detail", appErr.Cause())
	case apperrors.CodeLLMProviderError, apperrors.CodeConfiguration:
		logger.Warn(ctx, appErr.Message, "code", string(appErr.Code), "detail", appErr.Cause())
	default:
		logger.Error(ctx, appErr.Message, err, "code", string(appErr.Code))
	}

	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Cause(),
	})
}

// bindJSON 绑定请求体，失败时直接写 400
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		respondError(c, apperrors.ErrInvalidParam.WithDetail("invalid request body: "+err.Error()))
		return false
	}
	return true
}
