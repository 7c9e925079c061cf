// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tts-gateway/internal/application/stats"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/repository"
	"tts-gateway/internal/interfaces/http/handler"
	"tts-gateway/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health  *handler.HealthHandler
	Metrics *handler.MetricsHandler
	TTS     *handler.TTSHandler
	Voice   *handler.VoiceHandler
}

// Router HTTP 路由器
type Router struct {
	engine    *gin.Engine
	cfg       *config.Config
	handlers  Handlers
	validator repository.KeyValidator
	collector *stats.Collector
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, validator repository.KeyValidator, collector *stats.Collector) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:    gin.New(),
		cfg:       cfg,
		handlers:  handlers,
		validator: validator,
		collector: collector,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.collector))
	}

	// 审计日志
	r.engine.Use(middleware.Audit(middleware.DefaultAuditSkipPaths))

	// API Key 认证，系统端点跳过
	r.engine.Use(middleware.Auth(middleware.AuthConfig{
		HeaderName: r.cfg.Security.APIKeyHeader,
		SkipPaths:  middleware.DefaultSkipPaths,
	}, r.validator))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)
	r.engine.GET("/metrics", r.handlers.Metrics.Metrics)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 合成接口
	r.engine.POST("/tts", r.handlers.TTS.Synthesize)
	r.engine.POST("/tts/stream", r.handlers.TTS.SynthesizeStream)

	// 音色管理
	r.engine.GET("/voices", r.handlers.Voice.ListVoices)
	r.engine.POST("/clone", r.handlers.Voice.CloneVoice)
	r.engine.DELETE("/voices/:voice_id", r.handlers.Voice.DeleteVoice)
}
