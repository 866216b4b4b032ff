package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"z-story-studio/internal/application/story"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	redis   *redis.Client
	creds   story.CredentialSource
	version string
}

// NewHealthHandler 创建健康检查处理器；redisClient 为空表示使用内存会话
func NewHealthHandler(redisClient *redis.Client, creds story.CredentialSource, version string) *HealthHandler {
	return &HealthHandler{
		redis:   redisClient,
		creds:   creds,
		version: version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// 缺少某个家族的凭证只会让对应模型不可用，不影响就绪状态
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"redis": h.checkRedis(ctx),
	}
	for _, family := range []entity.BackendFamily{entity.FamilyChatCompletion, entity.FamilyMessages} {
		checks["credentials."+string(family)] = h.checkCredential(family)
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if checks["redis"].Status == "error" {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

func (h *HealthHandler) checkRedis(ctx context.Context) *readinessCheck {
	if h.redis == nil {
		return &readinessCheck{Status: "disabled"}
	}
	start := time.Now()
	err := h.redis.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

func (h *HealthHandler) checkCredential(family entity.BackendFamily) *readinessCheck {
	if h.creds == nil {
		return &readinessCheck{Status: "missing"}
	}
	if _, ok := h.creds.Credential(family); ok {
		return &readinessCheck{Status: "ok"}
	}
	return &readinessCheck{Status: "missing", Error: h.creds.KeyName(family) + " is not set"}
}
