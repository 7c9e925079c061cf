// Package usage 提供用量计量：异步落账、失败不回传
package usage

import (
	"context"
	"time"

	"tts-gateway/internal/domain/entity"
	"tts-gateway/internal/domain/repository"
	"tts-gateway/pkg/logger"
	"tts-gateway/pkg/metrics"
)

// Recorder 将用量事件异步写入账本
// 计量是尽力而为的旁路：账本故障只产生日志与指标，绝不影响音频响应
type Recorder struct {
	ledger  repository.UsageLedger
	timeout time.Duration
}

// NewRecorder 创建计量记录器
func NewRecorder(ledger repository.UsageLedger, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Recorder{ledger: ledger, timeout: timeout}
}

// Record 异步记录一次合成用量
// 立即返回；落账在独立 goroutine 中带超时完成
func (r *Recorder) Record(ctx context.Context, event *entity.UsageEvent) {
	// 与请求生命周期解耦，调用方断连不影响落账
	detached := context.WithoutCancel(ctx)

	go func() {
		writeCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := r.ledger.Record(writeCtx, event); err != nil {
			metrics.UsageRecordFailures.Inc()
			logger.Warn(detached, "usage record failed",
				"tenant", event.Tenant, "chars", event.Chars,
				"cache_hit", event.CacheHit, "error", err.Error())
		}
	}()
}
