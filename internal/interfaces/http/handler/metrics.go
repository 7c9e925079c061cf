// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/application/stats"
)

// MetricsHandler 进程内统计快照处理器
// Prometheus 指标走独立端点，这里提供轻量 JSON 概览
type MetricsHandler struct {
	collector *stats.Collector
}

// NewMetricsHandler 创建统计处理器
func NewMetricsHandler(collector *stats.Collector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

// Metrics 返回统计快照
func (h *MetricsHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.collector.Snapshot())
}
