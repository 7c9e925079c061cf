// Package stats 提供进程内请求统计，支撑 JSON 指标端点
package stats

import (
	"sync"
	"time"
)

// Snapshot 统计快照
type Snapshot struct {
	TotalRequests         int64   `json:"total_requests"`
	CacheHitRate          float64 `json:"cache_hit_rate"`
	AverageLatencySeconds float64 `json:"average_latency_seconds"`
	ErrorCount            int64   `json:"error_count"`
}

// Collector 累计请求级统计
// 进程内聚合，重启归零；长期趋势走 Prometheus
type Collector struct {
	mu           sync.Mutex
	requests     int64
	cacheHits    int64
	cacheLookups int64
	errors       int64
	totalLatency time.Duration
}

// NewCollector 创建统计采集器
func NewCollector() *Collector {
	return &Collector{}
}

// ObserveRequest 记录一次请求及其耗时
func (c *Collector) ObserveRequest(latency time.Duration, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.totalLatency += latency
	if isError {
		c.errors++
	}
}

// ObserveCache 记录一次缓存查询结果
func (c *Collector) ObserveCache(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheLookups++
	if hit {
		c.cacheHits++
	}
}

// Snapshot 导出当前统计
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		TotalRequests: c.requests,
		ErrorCount:    c.errors,
	}
	if c.cacheLookups > 0 {
		s.CacheHitRate = float64(c.cacheHits) / float64(c.cacheLookups)
	}
	if c.requests > 0 {
		s.AverageLatencySeconds = (c.totalLatency / time.Duration(c.requests)).Seconds()
	}
	return s
}
