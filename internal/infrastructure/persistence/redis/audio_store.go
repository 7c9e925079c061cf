// Package redis 提供音频缓存的 Redis 存储实现
package redis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AudioStore 基于 Redis 的音频字节存储
// 值为原始音频字节，TTL 由调用方按文本长度分层决定
type AudioStore struct {
	client *Client
}

// NewAudioStore 创建音频存储
func NewAudioStore(client *Client) *AudioStore {
	return &AudioStore{client: client}
}

// Get 读取缓存音频，未命中返回 (nil, nil)
func (s *AudioStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "redis.AudioStore.Get",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	return data, nil
}

// Set 写入缓存音频
func (s *AudioStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "redis.AudioStore.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int("cache.bytes", len(value)),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	if err := s.client.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Ping 实现健康探测
func (s *AudioStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
