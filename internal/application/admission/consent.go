// Package admission 提供请求准入控制：限流、熔断、克隆授权
package admission

import "sync"

// ConsentLedger 记录租户对声音克隆的一次性授权确认
// 进程内集合，随进程生命周期存活；重复记录为幂等空操作
type ConsentLedger struct {
	mu       sync.RWMutex
	consents map[string]struct{}
}

// NewConsentLedger 创建授权台账
func NewConsentLedger() *ConsentLedger {
	return &ConsentLedger{
		consents: make(map[string]struct{}),
	}
}

// HasConsented 检查租户是否已授权
func (c *ConsentLedger) HasConsented(tenant string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.consents[tenant]
	return ok
}

// RecordConsent 记录授权，幂等
func (c *ConsentLedger) RecordConsent(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consents[tenant] = struct{}{}
}
