// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/application/admission"
	"tts-gateway/internal/application/audiocache"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	cache   *audiocache.Cache
	breaker *admission.CircuitBreaker
	version string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cache *audiocache.Cache, breaker *admission.CircuitBreaker, version string) *HealthHandler {
	return &HealthHandler{
		cache:   cache,
		breaker: breaker,
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
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// 缓存后端故障只标记降级，网关退化为全量合成仍可服务
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"cache":   {Status: "unknown"},
		"breaker": {Status: "closed"},
	}

	// 缓存（可选，故障降级）
	start := time.Now()
	if err := h.cache.Healthy(ctx); err != nil {
		checks["cache"].Status = "degraded"
		checks["cache"].Error = err.Error()
	} else {
		checks["cache"].Status = "ok"
	}
	checks["cache"].LatencyMs = time.Since(start).Milliseconds()

	// 熔断器状态只作展示，断开时仍然就绪（返回 429 也是服务）
	if h.breaker.State() == admission.StateOpen {
		checks["breaker"].Status = "open"
	}

	status := "ok"
	if checks["cache"].Status != "ok" || checks["breaker"].Status == "open" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// Live 存活检查接口
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
