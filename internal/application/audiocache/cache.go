// Package audiocache 提供内容寻址的音频缓存
package audiocache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"tts-gateway/internal/domain/repository"
	"tts-gateway/pkg/logger"
	"tts-gateway/pkg/metrics"
)

// Cache 指纹到音频字节的缓存，正确性上仅为建议性
// 后端存储不可用时退化为全量合成，不会导致请求失败
type Cache struct {
	store      repository.AudioStore
	defaultTTL time.Duration
	// 长文本 TTL 上限：达到 longTextChars 的文本取 min(defaultTTL, longTextTTL)
	longTextTTL   time.Duration
	longTextChars int

	group singleflight.Group
}

// New 创建缓存
func New(store repository.AudioStore, defaultTTL, longTextTTL time.Duration, longTextChars int) *Cache {
	return &Cache{
		store:         store,
		defaultTTL:    defaultTTL,
		longTextTTL:   longTextTTL,
		longTextChars: longTextChars,
	}
}

// Get 精确匹配查询，未命中返回 (nil, false)
// 存储故障按未命中处理并记入指标
func (c *Cache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	val, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		metrics.CacheStoreErrors.Inc()
		logger.Warn(ctx, "audio cache lookup failed, treating as miss", "error", err.Error())
		return nil, false
	}
	if val == nil {
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return val, true
}

// Put 写入缓存，TTL 按源文本长度分档
// 同指纹并发写为后写覆盖；写失败只降级不报错
func (c *Cache) Put(ctx context.Context, fingerprint string, audio []byte, sourceTextLen int) {
	if err := c.store.Set(ctx, fingerprint, audio, c.TTLFor(sourceTextLen)); err != nil {
		metrics.CacheStoreErrors.Inc()
		logger.Warn(ctx, "audio cache write failed", "error", err.Error())
	}
}

// GetOrSynthesize 读穿缓存，未命中时经 singleflight 合并同指纹并发合成
// 返回值第二项表示是否缓存命中
func (c *Cache) GetOrSynthesize(ctx context.Context, fingerprint string, sourceTextLen int, synth func() ([]byte, error)) ([]byte, bool, error) {
	if val, ok := c.Get(ctx, fingerprint); ok {
		return val, true, nil
	}

	// executed 仅在本请求领飞（闭包真正执行）时为真
	// shared 标志对领飞者同样为真，不能用来区分命中
	executed := false
	hit := false
	result, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		executed = true
		// 二次检查，其他请求可能已经回填
		if val, ok := c.Get(ctx, fingerprint); ok {
			hit = true
			return val, nil
		}
		audio, err := synth()
		if err != nil {
			return nil, err
		}
		c.Put(ctx, fingerprint, audio, sourceTextLen)
		return audio, nil
	})
	if err != nil {
		return nil, false, err
	}

	// 搭上他人航班的请求视为命中，延迟特征与命中一致
	return result.([]byte), hit || !executed, nil
}

// TTLFor 返回给定文本长度适用的 TTL
func (c *Cache) TTLFor(sourceTextLen int) time.Duration {
	ttl := c.defaultTTL
	if sourceTextLen >= c.longTextChars && c.longTextTTL < ttl {
		ttl = c.longTextTTL
	}
	return ttl
}

// Healthy 探测后端存储可用性，供就绪检查使用
func (c *Cache) Healthy(ctx context.Context) error {
	return c.store.Ping(ctx)
}
