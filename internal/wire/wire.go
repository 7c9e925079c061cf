// Package wire 组装应用依赖
package wire

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/application/admission"
	"tts-gateway/internal/application/audiocache"
	"tts-gateway/internal/application/stats"
	"tts-gateway/internal/application/synthesis"
	"tts-gateway/internal/application/usage"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/repository"
	"tts-gateway/internal/infrastructure/gpuload"
	"tts-gateway/internal/infrastructure/inference"
	"tts-gateway/internal/infrastructure/ledger"
	"tts-gateway/internal/infrastructure/persistence/memory"
	redisstore "tts-gateway/internal/infrastructure/persistence/redis"
	"tts-gateway/internal/interfaces/http/handler"
	"tts-gateway/internal/interfaces/http/router"
	"tts-gateway/pkg/logger"
)

// App 组装完成的应用
type App struct {
	router *router.Router
}

// Engine 返回 HTTP 引擎
func (a *App) Engine() *gin.Engine {
	return a.router.Engine()
}

// InitializeApp 构造应用依赖图
// 准入状态对象（限流器、熔断器、授权台账）在此创建一次并注入，
// 不使用包级全局，测试可以用独立实例并行构造
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	cleanup := func() {}

	// 外部身份与计量后端
	ledgerClient := ledger.NewClient(&cfg.Ledger)

	// 音频缓存存储后端
	store, storeCleanup, err := newAudioStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup = storeCleanup

	cache := audiocache.New(store, cfg.Cache.DefaultTTL, cfg.Cache.LongTextTTL, cfg.Cache.LongTextChars)

	// 准入管线
	lane := cfg.Admission.LaneLimits()
	limiter := admission.NewRateLimiter(lane.SynthesisPerMinute, lane.ClonesPerDay)
	breaker := admission.NewCircuitBreaker(
		gpuload.FromConfig(&cfg.Admission.LoadSignal),
		cfg.Admission.Breaker.WindowSize,
		cfg.Admission.Breaker.OpenThreshold,
		cfg.Admission.Breaker.CloseThreshold,
		cfg.Admission.Breaker.RetryAfter,
	)
	consent := admission.NewConsentLedger()
	pipeline := admission.NewPipeline(limiter, breaker, consent, cfg.TTS.MaxChars, lane.Watermark)

	// 合成编排
	orchestrator := synthesis.NewOrchestrator(
		newEngines(cfg),
		synthesis.NewModelRegistry(),
		synthesis.Options{
			ModelID:        cfg.TTS.ModelID,
			ModelRevision:  cfg.TTS.ModelRevision,
			SampleRate:     cfg.TTS.SampleRate,
			BitrateKbps:    cfg.TTS.BitrateKbps,
			AttemptTimeout: cfg.TTS.Engines.Primary.Timeout,
			ChunkMs:        cfg.TTS.ChunkMs,
		},
	)

	// 计量与统计
	recorder := usage.NewRecorder(ledgerClient, cfg.Ledger.Timeout)
	collector := stats.NewCollector()

	// HTTP 层
	handlers := router.Handlers{
		Health:  handler.NewHealthHandler(cache, breaker, cfg.App.Version),
		Metrics: handler.NewMetricsHandler(collector),
		TTS: handler.NewTTSHandler(
			pipeline, cache, orchestrator, ledgerClient, recorder, collector, &cfg.TTS),
		Voice: handler.NewVoiceHandler(pipeline, ledgerClient, &cfg.Security.Upload),
	}

	app := &App{
		router: router.New(cfg, handlers, ledgerClient, collector),
	}

	logger.Info(ctx, "application initialized",
		"cache_backend", cfg.Cache.Backend,
		"lane", cfg.Admission.Lane,
		"engines", len(newEngines(cfg)),
	)

	return app, cleanup, nil
}

// newAudioStore 按配置选择缓存后端
func newAudioStore(cfg *config.Config) (repository.AudioStore, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		return memory.NewStore(), func() {}, nil
	case "redis", "":
		client, err := redisstore.NewClient(&cfg.Cache.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis: %w", err)
		}
		return redisstore.NewAudioStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// newEngines 按配置构造推理回退链，顺序即优先级
func newEngines(cfg *config.Config) []synthesis.Engine {
	var engines []synthesis.Engine
	if cfg.TTS.Engines.Primary.Enabled {
		engines = append(engines, inference.NewHTTPEngine("primary", cfg.TTS.Engines.Primary, cfg.TTS))
	}
	if cfg.TTS.Engines.Secondary.Enabled {
		engines = append(engines, inference.NewHTTPEngine("secondary", cfg.TTS.Engines.Secondary, cfg.TTS))
	}
	return engines
}
