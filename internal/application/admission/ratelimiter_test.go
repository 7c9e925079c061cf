package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tts-gateway/internal/domain/entity"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestRateLimiterSynthesisWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewRateLimiter(3, 1).WithClock(clock.Now)

	// 限额内全部放行
	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow("tenant-a", entity.ClassSynthesis)
		require.True(t, ok, "request %d should be admitted", i)
	}

	// 超限拒绝并返回窗口长度作为重试提示
	ok, retryAfter := limiter.Allow("tenant-a", entity.ClassSynthesis)
	assert.False(t, ok)
	assert.Equal(t, SynthesisWindow, retryAfter)

	// 窗口滑过后重新放行
	clock.Advance(61 * time.Second)
	ok, _ = limiter.Allow("tenant-a", entity.ClassSynthesis)
	assert.True(t, ok)
}

func TestRateLimiterTenantsIsolated(t *testing.T) {
	limiter := NewRateLimiter(1, 1)

	ok, _ := limiter.Allow("tenant-a", entity.ClassSynthesis)
	require.True(t, ok)
	ok, _ = limiter.Allow("tenant-a", entity.ClassSynthesis)
	require.False(t, ok)

	// 其他租户不受影响
	ok, _ = limiter.Allow("tenant-b", entity.ClassSynthesis)
	assert.True(t, ok)
}

func TestRateLimiterCloneDayBucket(t *testing.T) {
	// 23:59:59 用掉当日额度
	clock := &fakeClock{now: time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC)}
	limiter := NewRateLimiter(10, 1).WithClock(clock.Now)

	ok, _ := limiter.Allow("tenant-a", entity.ClassClone)
	require.True(t, ok)

	ok, retryAfter := limiter.Allow("tenant-a", entity.ClassClone)
	require.False(t, ok)
	assert.Equal(t, CloneWindow, retryAfter)

	// 跨过 UTC 日界后额度重置，即使距离上次不足 24 小时
	clock.Advance(2 * time.Second)
	ok, _ = limiter.Allow("tenant-a", entity.ClassClone)
	assert.True(t, ok)
}

func TestRateLimiterRemaining(t *testing.T) {
	limiter := NewRateLimiter(3, 1)

	assert.Equal(t, 3, limiter.Remaining("tenant-a", entity.ClassSynthesis))

	limiter.Allow("tenant-a", entity.ClassSynthesis)
	limiter.Allow("tenant-a", entity.ClassSynthesis)
	assert.Equal(t, 1, limiter.Remaining("tenant-a", entity.ClassSynthesis))

	// Remaining 只读，不消耗额度
	assert.Equal(t, 1, limiter.Remaining("tenant-a", entity.ClassSynthesis))

	limiter.Allow("tenant-a", entity.ClassSynthesis)
	limiter.Allow("tenant-a", entity.ClassSynthesis)
	assert.Equal(t, 0, limiter.Remaining("tenant-a", entity.ClassSynthesis))
}
