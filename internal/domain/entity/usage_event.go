// Package entity 定义领域实体
package entity

// UsageEvent 单次请求的计量记录
type UsageEvent struct {
	Tenant     string `json:"api_key"`
	Chars      int    `json:"chars_used"`
	DurationMs int64  `json:"duration_ms"`
	CacheHit   bool   `json:"cache_hit"`
}
