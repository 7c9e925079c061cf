// Package synthesis 提供合成编排：回退链、输出归一化、流式切片
package synthesis

import (
	"context"
	"encoding/binary"
	"math"

	"tts-gateway/internal/domain/entity"
)

// PlaceholderEngine 确定性占位引擎，生成固定音高的合成波形
// 回退链的最后一环，保证对外永远返回可解码音频
type PlaceholderEngine struct {
	sampleRate int
	freqHz     float64
	duration   float64
}

// NewPlaceholderEngine 创建占位引擎，440Hz 单音 1 秒
func NewPlaceholderEngine(sampleRate int) *PlaceholderEngine {
	return &PlaceholderEngine{
		sampleRate: sampleRate,
		freqHz:     440,
		duration:   1,
	}
}

// Name 实现 Engine 接口
func (e *PlaceholderEngine) Name() string {
	return "placeholder"
}

// Synthesize 生成正弦波 PCM 并包进 WAV 容器，永不失败
func (e *PlaceholderEngine) Synthesize(_ context.Context, _ string, _ entity.SpeakerEmbedding) ([]byte, error) {
	n := int(float64(e.sampleRate) * e.duration)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := math.Sin(2 * math.Pi * e.freqHz * float64(i) / float64(e.sampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample*32767)))
	}
	return wrapWAV(pcm, e.sampleRate), nil
}

// LoadModel 占位引擎无模型可加载
func (e *PlaceholderEngine) LoadModel(context.Context, string, string) error {
	return nil
}
