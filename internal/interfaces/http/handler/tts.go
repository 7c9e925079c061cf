// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/application/admission"
	"tts-gateway/internal/application/audiocache"
	"tts-gateway/internal/application/stats"
	"tts-gateway/internal/application/synthesis"
	"tts-gateway/internal/application/usage"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/entity"
	"tts-gateway/internal/domain/repository"
	"tts-gateway/internal/interfaces/http/dto"
	"tts-gateway/internal/interfaces/http/middleware"
	apperrors "tts-gateway/pkg/errors"
	"tts-gateway/pkg/logger"
)

const audioContentType = "audio/mpeg"

// TTSHandler 合成接口处理器
type TTSHandler struct {
	pipeline     *admission.Pipeline
	cache        *audiocache.Cache
	orchestrator *synthesis.Orchestrator
	voices       repository.VoiceProfileStore
	recorder     *usage.Recorder
	collector    *stats.Collector
	tts          *config.TTSConfig
}

// NewTTSHandler 创建合成处理器
func NewTTSHandler(
	pipeline *admission.Pipeline,
	cache *audiocache.Cache,
	orchestrator *synthesis.Orchestrator,
	voices repository.VoiceProfileStore,
	recorder *usage.Recorder,
	collector *stats.Collector,
	tts *config.TTSConfig,
) *TTSHandler {
	return &TTSHandler{
		pipeline:     pipeline,
		cache:        cache,
		orchestrator: orchestrator,
		voices:       voices,
		recorder:     recorder,
		collector:    collector,
		tts:          tts,
	}
}

// Synthesize 合成完整音频
func (h *TTSHandler) Synthesize(c *gin.Context) {
	audio, decision, ok := h.produce(c)
	if !ok {
		return
	}

	if decision.Watermark {
		c.Header("X-Audio-Watermark", "true")
	}
	c.Data(http.StatusOK, audioContentType, audio)
}

// SynthesizeStream 流式返回合成音频
// 先产出完整缓冲再切片下发，边界为时长启发式而非编码帧
func (h *TTSHandler) SynthesizeStream(c *gin.Context) {
	audio, decision, ok := h.produce(c)
	if !ok {
		return
	}

	if decision.Watermark {
		c.Header("X-Audio-Watermark", "true")
	}
	c.Header("Content-Type", audioContentType)
	c.Status(http.StatusOK)

	for _, chunk := range h.orchestrator.Chunk(audio, h.tts.ChunkMs) {
		if _, err := c.Writer.Write(chunk); err != nil {
			// 客户端断连，合成结果已回填缓存
			logger.Debug(c.Request.Context(), "stream write aborted", "error", err.Error())
			return
		}
		c.Writer.Flush()
	}
}

// produce 执行鉴权后的公共合成流程：准入、缓存读穿、计量
func (h *TTSHandler) produce(c *gin.Context) ([]byte, admission.Decision, bool) {
	start := time.Now()
	tenant := middleware.Tenant(c)

	var req dto.TTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.New(apperrors.CodeInvalidParam, "invalid request body"))
		return nil, admission.Decision{}, false
	}

	decision := h.pipeline.Evaluate(admission.Request{
		Tenant: tenant,
		Class:  entity.ClassSynthesis,
		Text:   req.Text,
	})
	if !decision.Allowed {
		dto.AppError(c, decision.Reject)
		return nil, decision, false
	}

	synReq := &entity.SynthesisRequest{
		Text:    req.Text,
		VoiceID: req.VoiceID,
	}

	// 克隆音色需要解析声纹，档案缺失按 404 处理
	if synReq.Voice() != entity.BaseVoiceID {
		embedding, err := h.voices.LoadEmbedding(c.Request.Context(), tenant, synReq.Voice())
		if err != nil {
			logger.Error(c.Request.Context(), "load speaker embedding failed", err)
			dto.AppError(c, apperrors.Wrap(err, apperrors.CodeLedgerError, "voice profile backend unavailable"))
			return nil, decision, false
		}
		if embedding == nil {
			dto.AppError(c, apperrors.ErrVoiceNotFound)
			return nil, decision, false
		}
		synReq.Embedding = embedding
	}

	fingerprint := audiocache.Fingerprint(audiocache.FingerprintInput{
		Text:          synReq.Text,
		VoiceID:       synReq.Voice(),
		ModelRevision: h.tts.ModelRevision,
		Quality:       h.tts.Quality,
		Sampler:       h.tts.Sampler,
	})

	// TTL 分档与计量都按字符计，与准入校验的口径一致
	textLen := utf8.RuneCountInString(synReq.NormalizedText())
	audio, hit, err := h.cache.GetOrSynthesize(c.Request.Context(), fingerprint, textLen, func() ([]byte, error) {
		out, _ := h.orchestrator.Synthesize(c.Request.Context(), synReq)
		return out, nil
	})
	if err != nil {
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeInferenceError, "synthesis failed"))
		return nil, decision, false
	}

	h.collector.ObserveCache(hit)
	h.recorder.Record(c.Request.Context(), &entity.UsageEvent{
		Tenant:     tenant,
		Chars:      textLen,
		DurationMs: time.Since(start).Milliseconds(),
		CacheHit:   hit,
	})

	return audio, decision, true
}
