// Package inference 提供远端推理服务的 HTTP 引擎实现
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tts-gateway/internal/application/synthesis"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/entity"
)

var tracer = otel.Tracer("inference")

// HTTPEngine 通过 HTTP 调用远端推理服务的合成引擎
// 输出编码参数随请求下发，远端按约定返回 MP3 字节
type HTTPEngine struct {
	name     string
	baseURL  string
	token    string
	client   *http.Client
	encoding Encoding
}

// Encoding 下发给远端的输出编码参数
type Encoding struct {
	SampleRate  int    `json:"sample_rate"`
	BitrateKbps int    `json:"bitrate_kbps"`
	Quality     string `json:"quality"`
	Sampler     string `json:"sampler"`
	Format      string `json:"format"`
}

type synthesizeRequest struct {
	Text      string   `json:"text"`
	Embedding string   `json:"embedding,omitempty"`
	Encoding  Encoding `json:"encoding"`
}

type loadModelRequest struct {
	ModelID  string `json:"model_id"`
	Revision string `json:"revision"`
}

// NewHTTPEngine 创建 HTTP 推理引擎
func NewHTTPEngine(name string, cfg config.EngineConfig, tts config.TTSConfig) *HTTPEngine {
	return &HTTPEngine{
		name:    name,
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		encoding: Encoding{
			SampleRate:  tts.SampleRate,
			BitrateKbps: tts.BitrateKbps,
			Quality:     tts.Quality,
			Sampler:     tts.Sampler,
			Format:      "mp3",
		},
	}
}

// Name 实现 Engine 接口
func (e *HTTPEngine) Name() string {
	return e.name
}

// Synthesize 调用远端合成接口
// 任何网络或服务端错误都折叠为 ErrEngineUnavailable，回退链据此继续
func (e *HTTPEngine) Synthesize(ctx context.Context, text string, embedding entity.SpeakerEmbedding) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "inference.Synthesize",
		trace.WithAttributes(
			attribute.String("engine", e.name),
			attribute.Int("text_chars", utf8.RuneCountInString(text)),
		))
	defer span.End()

	payload := synthesizeRequest{
		Text:     text,
		Encoding: e.encoding,
	}
	if len(embedding) > 0 {
		payload.Embedding = base64.StdEncoding.EncodeToString(embedding)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %s: %v", synthesis.ErrEngineUnavailable, e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s returned status %d", synthesis.ErrEngineUnavailable, e.name, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %s: read response: %v", synthesis.ErrEngineUnavailable, e.name, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %s returned empty audio", synthesis.ErrEngineUnavailable, e.name)
	}
	return audio, nil
}

// LoadModel 请求远端预热模型
func (e *HTTPEngine) LoadModel(ctx context.Context, modelID, revision string) error {
	ctx, span := tracer.Start(ctx, "inference.LoadModel",
		trace.WithAttributes(
			attribute.String("engine", e.name),
			attribute.String("model", modelID),
		))
	defer span.End()

	body, err := json.Marshal(loadModelRequest{ModelID: modelID, Revision: revision})
	if err != nil {
		return fmt.Errorf("marshal load model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/models/load", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build load model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("warmup %s: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warmup %s: status %d", e.name, resp.StatusCode)
	}
	return nil
}
