// Package admission 提供请求准入控制：限流、熔断、克隆授权
package admission

import (
	"sync"
	"time"

	"tts-gateway/internal/domain/entity"
)

const (
	// SynthesisWindow 合成类滚动窗口长度
	SynthesisWindow = 60 * time.Second
	// CloneWindow 克隆类记录保留长度，计数按 UTC 自然日分桶
	CloneWindow = 24 * time.Hour
)

// RateLimiter 按 (租户, 类别) 维护滑动窗口事件日志
// 窗口状态仅存活于进程内，裁剪在每次检查时惰性执行
type RateLimiter struct {
	synthesisLimit int
	cloneLimit     int

	// now 可注入，测试用
	now func() time.Time

	mu      sync.Mutex
	windows map[windowKey]*rateWindow
}

type windowKey struct {
	tenant string
	class  entity.LimitClass
}

// rateWindow 单租户单类别的事件时间序列，持有独立锁
// 避免一把全局锁串行化所有租户
type rateWindow struct {
	mu     sync.Mutex
	events []time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(synthesisLimit, cloneLimit int) *RateLimiter {
	return &RateLimiter{
		synthesisLimit: synthesisLimit,
		cloneLimit:     cloneLimit,
		now:            time.Now,
		windows:        make(map[windowKey]*rateWindow),
	}
}

// WithClock 注入时钟，返回自身便于链式构造
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Allow 检查并记录一次事件
// 允许时带副作用追加当前时间戳；拒绝时返回窗口长度作为重试提示
func (l *RateLimiter) Allow(tenant string, class entity.LimitClass) (bool, time.Duration) {
	w := l.window(tenant, class)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	switch class {
	case entity.ClassClone:
		return l.allowClone(w, now)
	default:
		return l.allowSynthesis(w, now)
	}
}

// Remaining 返回当前窗口剩余配额，只读不记录
func (l *RateLimiter) Remaining(tenant string, class entity.LimitClass) int {
	w := l.window(tenant, class)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	var used, limit int
	switch class {
	case entity.ClassClone:
		w.prune(now.Add(-CloneWindow))
		used = countDayBucket(w.events, now)
		limit = l.cloneLimit
	default:
		w.prune(now.Add(-SynthesisWindow))
		used = len(w.events)
		limit = l.synthesisLimit
	}

	if remaining := limit - used; remaining > 0 {
		return remaining
	}
	return 0
}

func (l *RateLimiter) allowSynthesis(w *rateWindow, now time.Time) (bool, time.Duration) {
	w.prune(now.Add(-SynthesisWindow))
	if len(w.events) >= l.synthesisLimit {
		return false, SynthesisWindow
	}
	w.events = append(w.events, now)
	return true, 0
}

func (l *RateLimiter) allowClone(w *rateWindow, now time.Time) (bool, time.Duration) {
	// 保留 24h 内的记录做账，计数只看今天的日桶
	w.prune(now.Add(-CloneWindow))
	if countDayBucket(w.events, now) >= l.cloneLimit {
		return false, CloneWindow
	}
	w.events = append(w.events, now)
	return true, 0
}

func (l *RateLimiter) window(tenant string, class entity.LimitClass) *rateWindow {
	key := windowKey{tenant: tenant, class: class}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &rateWindow{}
		l.windows[key] = w
	}
	return w
}

// prune 丢弃 cutoff 之前的时间戳，调用方需持有 w.mu
func (w *rateWindow) prune(cutoff time.Time) {
	kept := w.events[:0]
	for _, ts := range w.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.events = kept
}

// countDayBucket 统计与 now 处于同一 UTC 自然日的事件数
// 日桶为 epoch 秒整除 86400，非滚动 24 小时
func countDayBucket(events []time.Time, now time.Time) int {
	today := now.Unix() / 86400
	count := 0
	for _, ts := range events {
		if ts.Unix()/86400 == today {
			count++
		}
	}
	return count
}
