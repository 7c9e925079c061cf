// Package synthesis 提供合成编排：回退链、输出归一化、流式切片
package synthesis

import (
	"context"
	"sync"

	"tts-gateway/pkg/logger"
)

// ModelRegistry 进程内模型装载状态
// 惰性加载一次并缓存，幂等；修订变更需要重启或显式 Invalidate
type ModelRegistry struct {
	mu     sync.Mutex
	loaded map[string]struct{}
}

// NewModelRegistry 创建模型注册表
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		loaded: make(map[string]struct{}),
	}
}

// Ensure 确保 (模型, 修订) 已预热
// 同一组合重复调用为空操作；预热失败被吸收，回退链保证可用性
func (r *ModelRegistry) Ensure(ctx context.Context, engines []Engine, modelID, revision string) {
	key := modelID + "@" + revision

	r.mu.Lock()
	if _, ok := r.loaded[key]; ok {
		r.mu.Unlock()
		return
	}
	r.loaded[key] = struct{}{}
	r.mu.Unlock()

	for _, eng := range engines {
		if err := eng.LoadModel(ctx, modelID, revision); err != nil {
			logger.Warn(ctx, "model warmup failed",
				"engine", eng.Name(), "model", modelID, "revision", revision,
				"error", err.Error())
		}
	}
}

// Invalidate 清空装载状态，下一次请求重新预热
func (r *ModelRegistry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[string]struct{})
}
