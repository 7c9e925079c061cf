// Package admission 提供请求准入控制：限流、熔断、克隆授权
package admission

import (
	"sync"
	"time"

	"tts-gateway/pkg/metrics"
)

// LoadSignal 后端利用率信号源，实现可为模拟值、静态值或真实指标
type LoadSignal interface {
	// Sample 返回当前利用率百分比 [0,100]
	Sample() float64
}

// BreakerState 熔断器状态
type BreakerState int

const (
	// StateClosed 正常放行
	StateClosed BreakerState = iota
	// StateOpen 拒绝请求，等待负载回落
	StateOpen
)

// CircuitBreaker 基于滚动均值的迟滞熔断器
// 均值 > openThreshold 断开，< closeThreshold 闭合，区间内保持原状态防抖
type CircuitBreaker struct {
	signal         LoadSignal
	windowSize     int
	openThreshold  float64
	closeThreshold float64
	retryAfter     time.Duration

	mu      sync.Mutex
	state   BreakerState
	samples []float64
	cursor  int
	filled  bool
}

// NewCircuitBreaker 创建熔断器，初始状态为闭合
func NewCircuitBreaker(signal LoadSignal, windowSize int, openThreshold, closeThreshold float64, retryAfter time.Duration) *CircuitBreaker {
	if windowSize <= 0 {
		windowSize = 10
	}
	if retryAfter <= 0 {
		retryAfter = 30 * time.Second
	}
	return &CircuitBreaker{
		signal:         signal,
		windowSize:     windowSize,
		openThreshold:  openThreshold,
		closeThreshold: closeThreshold,
		retryAfter:     retryAfter,
		state:          StateClosed,
		samples:        make([]float64, windowSize),
	}
}

// Evaluate 采样一次并返回是否放行
// 断开时仍然采样并参与状态迁移，否则熔断器无法自愈
func (b *CircuitBreaker) Evaluate() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record(b.signal.Sample())
	mean := b.mean()
	metrics.LoadSignalMean.Set(mean)

	switch b.state {
	case StateClosed:
		if mean > b.openThreshold {
			b.state = StateOpen
		}
	case StateOpen:
		if mean < b.closeThreshold {
			b.state = StateClosed
		}
	}

	if b.state == StateOpen {
		metrics.CircuitBreakerState.Set(1)
		return false, b.retryAfter
	}
	metrics.CircuitBreakerState.Set(0)
	return true, 0
}

// State 返回当前状态，只读
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// record 写入环形缓冲，超过窗口大小时覆盖最旧样本
func (b *CircuitBreaker) record(sample float64) {
	b.samples[b.cursor] = sample
	b.cursor++
	if b.cursor == b.windowSize {
		b.cursor = 0
		b.filled = true
	}
}

func (b *CircuitBreaker) mean() float64 {
	n := b.windowSize
	if !b.filled {
		n = b.cursor
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += b.samples[i]
	}
	return sum / float64(n)
}
