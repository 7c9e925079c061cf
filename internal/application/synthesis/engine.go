// Package synthesis 提供合成编排：回退链、输出归一化、流式切片
package synthesis

import (
	"context"
	"errors"

	"tts-gateway/internal/domain/entity"
)

// ErrEngineUnavailable 引擎不可用的类型化结果
// 回退链据此跳到下一个引擎，而非捕获任意异常
var ErrEngineUnavailable = errors.New("synthesis engine unavailable")

// Engine 合成引擎的统一能力接口
// 变体集合封闭：主推理路径、备用原始路径、占位兜底，由配置选择
type Engine interface {
	// Name 引擎标识，用于日志与指标
	Name() string
	// Synthesize 合成音频，embedding 为空时使用基础音色
	Synthesize(ctx context.Context, text string, embedding entity.SpeakerEmbedding) ([]byte, error)
	// LoadModel 预热模型，幂等；不支持预热的引擎返回 nil
	LoadModel(ctx context.Context, modelID, revision string) error
}
