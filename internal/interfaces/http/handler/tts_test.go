package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tts-gateway/internal/application/admission"
	"tts-gateway/internal/application/audiocache"
	"tts-gateway/internal/application/stats"
	"tts-gateway/internal/application/synthesis"
	"tts-gateway/internal/application/usage"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/entity"
	"tts-gateway/internal/infrastructure/persistence/memory"
	"tts-gateway/internal/interfaces/http/handler"
	"tts-gateway/internal/interfaces/http/router"
)

const testAPIKey = "good-key"

// fakeValidator 只认一个固定凭证
type fakeValidator struct{}

func (fakeValidator) Validate(_ context.Context, apiKey string) (bool, error) {
	return apiKey == testAPIKey, nil
}

// fakeVoiceStore 进程内音色库
type fakeVoiceStore struct {
	profiles map[string]*entity.VoiceProfile
}

func newFakeVoiceStore() *fakeVoiceStore {
	return &fakeVoiceStore{profiles: make(map[string]*entity.VoiceProfile)}
}

func (s *fakeVoiceStore) List(_ context.Context, tenant string) ([]*entity.VoiceProfile, error) {
	var out []*entity.VoiceProfile
	for _, p := range s.profiles {
		if p.Tenant == tenant {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeVoiceStore) Create(_ context.Context, tenant, label string, _ []byte, _ string) (*entity.VoiceProfile, error) {
	p := &entity.VoiceProfile{
		ID:        fmt.Sprintf("voice-%d", len(s.profiles)+1),
		Tenant:    tenant,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *fakeVoiceStore) Delete(_ context.Context, tenant, voiceID string) error {
	delete(s.profiles, voiceID)
	return nil
}

func (s *fakeVoiceStore) LoadEmbedding(_ context.Context, tenant, voiceID string) (entity.SpeakerEmbedding, error) {
	if _, ok := s.profiles[voiceID]; !ok {
		return nil, nil
	}
	return entity.SpeakerEmbedding("fake-embedding"), nil
}

// fakeLedger 捕获计量事件
type fakeLedger struct {
	events chan *entity.UsageEvent
}

func (l *fakeLedger) Record(_ context.Context, evt *entity.UsageEvent) error {
	l.events <- evt
	return nil
}

// echoEngine 对同一文本输出确定性 MP3 字节
type echoEngine struct{}

func (echoEngine) Name() string { return "primary" }

func (echoEngine) Synthesize(_ context.Context, text string, _ entity.SpeakerEmbedding) ([]byte, error) {
	return append([]byte{0xFF, 0xFB}, []byte(text)...), nil
}

func (echoEngine) LoadModel(context.Context, string, string) error { return nil }

type testEnv struct {
	engine *gin.Engine
	ledger *fakeLedger
	voices *fakeVoiceStore
}

type envOptions struct {
	synthesisLimit int
	cloneLimit     int
	watermark      bool
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Name = "tts-gateway"
	cfg.App.Env = "test"
	cfg.Security.APIKeyHeader = "X-API-Key"
	cfg.Security.Upload.MaxBytes = 6 * 1024 * 1024
	cfg.Security.Upload.AllowedTypes = []string{"audio/wav", "audio/x-wav", "audio/mp3", "audio/mpeg"}
	cfg.Observability.Metrics.Enabled = false
	cfg.TTS.MaxChars = 800
	cfg.TTS.ModelRevision = "main"
	cfg.TTS.Quality = "standard"
	cfg.TTS.Sampler = "default"
	cfg.TTS.SampleRate = 16000
	cfg.TTS.BitrateKbps = 64
	cfg.TTS.ChunkMs = 240

	cache := audiocache.New(memory.NewStore(), 24*time.Hour, 2*time.Hour, 200)

	limiter := admission.NewRateLimiter(opts.synthesisLimit, opts.cloneLimit)
	breaker := admission.NewCircuitBreaker(staticSignal(10), 10, 90, 70, 30*time.Second)
	pipeline := admission.NewPipeline(limiter, breaker, admission.NewConsentLedger(), cfg.TTS.MaxChars, opts.watermark)

	orchestrator := synthesis.NewOrchestrator([]synthesis.Engine{echoEngine{}}, synthesis.NewModelRegistry(), synthesis.Options{
		ModelID:       "test/model",
		ModelRevision: "main",
		SampleRate:    16000,
		BitrateKbps:   64,
		ChunkMs:       240,
	})

	ledger := &fakeLedger{events: make(chan *entity.UsageEvent, 16)}
	recorder := usage.NewRecorder(ledger, time.Second)
	collector := stats.NewCollector()
	voices := newFakeVoiceStore()

	handlers := router.Handlers{
		Health:  handler.NewHealthHandler(cache, breaker, "test"),
		Metrics: handler.NewMetricsHandler(collector),
		TTS:     handler.NewTTSHandler(pipeline, cache, orchestrator, voices, recorder, collector, &cfg.TTS),
		Voice:   handler.NewVoiceHandler(pipeline, voices, &cfg.Security.Upload),
	}

	return &testEnv{
		engine: router.New(cfg, handlers, fakeValidator{}, collector).Engine(),
		ledger: ledger,
		voices: voices,
	}
}

// staticSignal 固定利用率信号
type staticSignal float64

func (s staticSignal) Sample() float64 { return float64(s) }

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func ttsRequest(body string, withKey bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	return req
}

func TestSynthesizeRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	w := env.do(ttsRequest(`{"text":"Welcome"}`, false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := ttsRequest(`{"text":"Welcome"}`, false)
	req.Header.Set("X-API-Key", "wrong-key")
	w = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	w := env.do(ttsRequest(`{"text":"  "}`, true))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "3001")
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	w := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
	assert.Empty(t, w.Header().Get("X-Audio-Watermark"))
}

func TestSynthesizeCacheHitIsByteIdentical(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	first := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	// 计量事件按序反映命中状态
	evt := waitEvent(t, env.ledger)
	assert.False(t, evt.CacheHit)
	assert.Equal(t, len("Welcome"), evt.Chars)

	evt = waitEvent(t, env.ledger)
	assert.True(t, evt.CacheHit)
}

func waitEvent(t *testing.T, ledger *fakeLedger) *entity.UsageEvent {
	t.Helper()
	select {
	case evt := <-ledger.events:
		return evt
	case <-time.After(time.Second):
		t.Fatal("usage event not recorded")
		return nil
	}
}

func TestSynthesizeMetersCharactersNotBytes(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	// 8 个汉字 24 字节，计量按字符数上报
	w := env.do(ttsRequest(`{"text":"欢迎使用语音合成"}`, true))
	require.Equal(t, http.StatusOK, w.Code)

	evt := waitEvent(t, env.ledger)
	assert.Equal(t, 8, evt.Chars)
}

func TestSynthesizeRateLimited(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 2, cloneLimit: 5})

	for i := 0; i < 2; i++ {
		w := env.do(ttsRequest(`{"text":"Welcome"}`, true))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestSynthesizeUnknownVoice(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	w := env.do(ttsRequest(`{"text":"Welcome","voice_id":"nope"}`, true))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSynthesizeWatermarkHeader(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5, watermark: true})

	w := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Audio-Watermark"))
}

func TestStreamMatchesFullResponse(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	full := env.do(ttsRequest(`{"text":"Welcome"}`, true))
	require.Equal(t, http.StatusOK, full.Code)

	req := httptest.NewRequest(http.MethodPost, "/tts/stream", strings.NewReader(`{"text":"Welcome"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	stream := env.do(req)

	require.Equal(t, http.StatusOK, stream.Code)
	assert.Equal(t, full.Body.Bytes(), stream.Body.Bytes())
}

func TestListVoicesIncludesBase(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	req := httptest.NewRequest(http.MethodGet, "/voices", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"base"`)
}

func cloneRequest(t *testing.T, consent string, contentType string, size int) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio_file"; filename="sample.wav"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	part.Write(make([]byte, size))

	require.NoError(t, mw.WriteField("label", "My voice"))
	if consent != "" {
		require.NoError(t, mw.WriteField("consent", consent))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/clone", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}

func TestCloneRequiresConsent(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	w := env.do(cloneRequest(t, "", "audio/wav", 1024))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "4003")

	// 随附授权后创建成功，后续不再要求
	w = env.do(cloneRequest(t, "true", "audio/wav", 1024))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "voice_id")

	w = env.do(cloneRequest(t, "", "audio/wav", 1024))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCloneRejectsBadUploads(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	// 不支持的类型
	w := env.do(cloneRequest(t, "true", "video/mp4", 1024))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "3003")

	// 超过大小上限
	w = env.do(cloneRequest(t, "true", "audio/wav", 7*1024*1024))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "3004")
}

func TestCloneDailyLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 1})

	w := env.do(cloneRequest(t, "true", "audio/wav", 1024))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(cloneRequest(t, "true", "audio/wav", 1024))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestDeleteVoice(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	created := env.do(cloneRequest(t, "true", "audio/wav", 1024))
	require.Equal(t, http.StatusCreated, created.Code)

	req := httptest.NewRequest(http.MethodDelete, "/voices/voice-1", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := env.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 内置音色不可删除
	req = httptest.NewRequest(http.MethodDelete, "/voices/base", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w = env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSystemEndpointsSkipAuth(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}
}

func TestClonedVoiceUsableForSynthesis(t *testing.T) {
	env := newTestEnv(t, envOptions{synthesisLimit: 10, cloneLimit: 5})

	created := env.do(cloneRequest(t, "true", "audio/wav", 1024))
	require.Equal(t, http.StatusCreated, created.Code)

	w := env.do(ttsRequest(`{"text":"Welcome","voice_id":"voice-1"}`, true))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}
