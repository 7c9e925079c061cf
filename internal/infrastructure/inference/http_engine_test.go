package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tts-gateway/internal/application/synthesis"
	"tts-gateway/internal/config"
)

func testTTSConfig() config.TTSConfig {
	return config.TTSConfig{
		SampleRate:  16000,
		BitrateKbps: 64,
		Quality:     "standard",
		Sampler:     "default",
	}
}

func newTestEngine(baseURL string) *HTTPEngine {
	return NewHTTPEngine("primary", config.EngineConfig{
		BaseURL: baseURL,
		Token:   "secret-token",
		Timeout: 2 * time.Second,
	}, testTTSConfig())
}

func TestHTTPEngineSynthesize(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/synthesize", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		// 编码参数随请求下发
		assert.Equal(t, 16000, req.Encoding.SampleRate)
		assert.Equal(t, 64, req.Encoding.BitrateKbps)
		assert.Equal(t, "mp3", req.Encoding.Format)

		w.Write(audio)
	}))
	defer srv.Close()

	got, err := newTestEngine(srv.URL).Synthesize(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestHTTPEngineSendsEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Embedding)
		w.Write([]byte{0xFF, 0xFB})
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Synthesize(context.Background(), "hello", []byte{1, 2, 3})
	require.NoError(t, err)
}

func TestHTTPEngineServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Synthesize(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, synthesis.ErrEngineUnavailable))
}

func TestHTTPEngineConnectionRefusedIsUnavailable(t *testing.T) {
	_, err := newTestEngine("http://127.0.0.1:1").Synthesize(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, synthesis.ErrEngineUnavailable))
}

func TestHTTPEngineEmptyAudioIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Synthesize(context.Background(), "hello", nil)
	assert.True(t, errors.Is(err, synthesis.ErrEngineUnavailable))
}

func TestHTTPEngineLoadModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/load", r.URL.Path)

		var req loadModelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test/model", req.ModelID)
		assert.Equal(t, "main", req.Revision)
	}))
	defer srv.Close()

	assert.NoError(t, newTestEngine(srv.URL).LoadModel(context.Background(), "test/model", "main"))
}
