// Package repository 定义对外部协作方的端口
package repository

import (
	"context"
	"time"

	"tts-gateway/internal/domain/entity"
)

// KeyValidator 校验租户凭证，由外部身份后端实现
type KeyValidator interface {
	Validate(ctx context.Context, apiKey string) (bool, error)
}

// UsageLedger 计量台账，由外部后端实现
// 写入失败只记录日志，永不阻塞响应路径
type UsageLedger interface {
	Record(ctx context.Context, evt *entity.UsageEvent) error
}

// VoiceProfileStore 音色档案库，由外部后端实现
type VoiceProfileStore interface {
	List(ctx context.Context, tenant string) ([]*entity.VoiceProfile, error)
	Create(ctx context.Context, tenant, label string, sample []byte, contentType string) (*entity.VoiceProfile, error)
	Delete(ctx context.Context, tenant, voiceID string) error
	// LoadEmbedding 返回声纹向量，档案不存在时返回 (nil, nil)
	LoadEmbedding(ctx context.Context, tenant, voiceID string) (entity.SpeakerEmbedding, error)
}

// AudioStore 音频缓存的键值存储抽象，redis 或进程内实现
type AudioStore interface {
	// Get 返回缓存值，未命中时返回 (nil, nil)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}
