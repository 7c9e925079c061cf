// Package synthesis 提供合成编排：回退链、输出归一化、流式切片
package synthesis

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tts-gateway/internal/domain/entity"
	"tts-gateway/pkg/logger"
	"tts-gateway/pkg/metrics"
)

var tracer = otel.Tracer("synthesis")

// Options 编排器参数
type Options struct {
	ModelID       string
	ModelRevision string
	SampleRate    int
	BitrateKbps   int
	// AttemptTimeout 回退链单次尝试的超时
	AttemptTimeout time.Duration
	// ChunkMs 流式切片的目标时长
	ChunkMs int
}

// Orchestrator 持有推理回退链并归一化输出
// 链内引擎按序尝试，首个成功者胜出；占位引擎兜底保证永不失败
type Orchestrator struct {
	engines     []Engine
	placeholder *PlaceholderEngine
	models      *ModelRegistry
	opts        Options
}

// NewOrchestrator 创建编排器
// engines 为主/备推理路径，占位引擎内部追加，不由调用方传入
func NewOrchestrator(engines []Engine, models *ModelRegistry, opts Options) *Orchestrator {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.ChunkMs <= 0 {
		opts.ChunkMs = 240
	}
	return &Orchestrator{
		engines:     engines,
		placeholder: NewPlaceholderEngine(opts.SampleRate),
		models:      models,
		opts:        opts,
	}
}

// Synthesize 合成完整音频，返回字节与产出引擎名
// 对格式合法的请求永不报错：推理链全部失败时落到占位波形
// 调用方断连不中断进行中的合成，缓存回填对下一个请求仍有价值
func (o *Orchestrator) Synthesize(ctx context.Context, req *entity.SynthesisRequest) ([]byte, string) {
	ctx = context.WithoutCancel(ctx)

	ctx, span := tracer.Start(ctx, "synthesis.Synthesize",
		trace.WithAttributes(attribute.String("voice", req.Voice())))
	defer span.End()

	o.models.Ensure(ctx, o.engines, o.opts.ModelID, o.opts.ModelRevision)

	text := req.NormalizedText()
	metrics.SynthesisTextChars.Observe(float64(utf8.RuneCountInString(text)))

	for _, eng := range o.engines {
		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, o.opts.AttemptTimeout)
		audio, err := eng.Synthesize(attemptCtx, text, req.Embedding)
		cancel()

		elapsed := time.Since(start)
		metrics.SynthesisDuration.WithLabelValues(eng.Name()).Observe(elapsed.Seconds())

		if err != nil {
			metrics.SynthesisTotal.WithLabelValues(eng.Name(), "error").Inc()
			logger.Warn(ctx, "synthesis attempt failed, trying next engine",
				"engine", eng.Name(), "duration_ms", elapsed.Milliseconds(),
				"error", err.Error())
			continue
		}

		metrics.SynthesisTotal.WithLabelValues(eng.Name(), "ok").Inc()
		return o.normalize(audio), eng.Name()
	}

	// 推理链耗尽：占位波形兜底，对调用方不可见，对运营可见
	metrics.PlaceholderFallbackTotal.Inc()
	logger.Error(ctx, "all synthesis engines failed, serving placeholder waveform", nil)

	audio, _ := o.placeholder.Synthesize(ctx, text, nil)
	metrics.SynthesisTotal.WithLabelValues(o.placeholder.Name(), "ok").Inc()
	return audio, o.placeholder.Name()
}

// SynthesizeStreaming 流式合成：先产出完整缓冲，再按时长启发式切片
// 切片边界不对齐编码帧，消费端顺序播放即可；非比特级精确
func (o *Orchestrator) SynthesizeStreaming(ctx context.Context, req *entity.SynthesisRequest, chunkMs int) ([][]byte, string) {
	if chunkMs <= 0 {
		chunkMs = o.opts.ChunkMs
	}
	audio, engine := o.Synthesize(ctx, req)
	return o.Chunk(audio, chunkMs), engine
}

// Chunk 按 chunk_count ≈ total_bytes / bytes_per_chunk_duration 切片
func (o *Orchestrator) Chunk(audio []byte, chunkMs int) [][]byte {
	bytesPerSecond := o.opts.BitrateKbps * 1000 / 8
	step := bytesPerSecond * chunkMs / 1000
	if step < 1024 {
		step = 1024
	}

	chunks := make([][]byte, 0, len(audio)/step+1)
	for i := 0; i < len(audio); i += step {
		end := i + step
		if end > len(audio) {
			end = len(audio)
		}
		chunks = append(chunks, audio[i:end])
	}
	return chunks
}

// normalize 归一化输出容器
// 引擎按约定返回目标编码的 MP3；裸 PCM 包进 WAV 容器，保证字节可解码
func (o *Orchestrator) normalize(audio []byte) []byte {
	if isEncodedAudio(audio) {
		return audio
	}
	return wrapWAV(audio, o.opts.SampleRate)
}

// InvalidateModel 显式失效模型装载状态
func (o *Orchestrator) InvalidateModel() {
	o.models.Invalidate()
}
