// Package admission 提供请求准入控制：限流、熔断、克隆授权
package admission

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tts-gateway/internal/domain/entity"
	apperrors "tts-gateway/pkg/errors"
	"tts-gateway/pkg/metrics"
)

// Request 待准入的请求描述
// 租户鉴权在进入管线之前由认证中间件完成
type Request struct {
	Tenant string
	Class  entity.LimitClass
	Text   string
	// ConsentGiven 本次请求是否随附授权确认，仅克隆类关心
	ConsentGiven bool
}

// Decision 准入裁决
type Decision struct {
	Allowed bool
	// Reject 拒绝原因，Allowed 为 false 时非空
	Reject *apperrors.AppError
	// RetryAfter 策略拒绝的重试提示
	RetryAfter time.Duration
	// Watermark 放行请求的水印标记，仅作为元数据下传，不阻断
	Watermark bool
}

// Pipeline 按固定顺序编排准入闸门：文本校验 -> 熔断 -> 授权 -> 限流
// 状态对象在进程启动时构造一次并注入，不使用包级全局
type Pipeline struct {
	limiter  *RateLimiter
	breaker  *CircuitBreaker
	consent  *ConsentLedger
	maxChars int
	// watermark 部署档位是否默认加水印
	watermark bool
}

// NewPipeline 创建准入管线
func NewPipeline(limiter *RateLimiter, breaker *CircuitBreaker, consent *ConsentLedger, maxChars int, watermark bool) *Pipeline {
	return &Pipeline{
		limiter:   limiter,
		breaker:   breaker,
		consent:   consent,
		maxChars:  maxChars,
		watermark: watermark,
	}
}

// Consent 返回授权台账，克隆接口需要在准入外单独记录授权
func (p *Pipeline) Consent() *ConsentLedger {
	return p.consent
}

// Evaluate 执行准入裁决
func (p *Pipeline) Evaluate(req Request) Decision {
	// 1. 文本边界校验，不合法直接拒绝而非降级
	if req.Class == entity.ClassSynthesis {
		if reject := p.validateText(req.Text); reject != nil {
			metrics.AdmissionRejectsTotal.WithLabelValues("validation").Inc()
			return Decision{Reject: reject}
		}
	}

	// 2. 过载熔断，断开时带重试提示拒绝
	if allowed, retryAfter := p.breaker.Evaluate(); !allowed {
		metrics.AdmissionRejectsTotal.WithLabelValues("breaker").Inc()
		reject := apperrors.New(apperrors.CodeCircuitOpen,
			"service temporarily unavailable due to high backend load").
			WithRetryAfter(retryAfter)
		return Decision{Reject: reject, RetryAfter: retryAfter}
	}

	// 3. 克隆类请求需要一次性授权；本次随附授权时记录后放行
	// 授权先于限流检查，授权拒绝不消耗当日克隆额度
	if req.Class == entity.ClassClone {
		if !p.consent.HasConsented(req.Tenant) {
			if !req.ConsentGiven {
				metrics.AdmissionRejectsTotal.WithLabelValues("consent").Inc()
				reject := apperrors.New(apperrors.CodeConsentRequired,
					"consent required: please confirm you own the voice in the uploaded audio")
				return Decision{Reject: reject}
			}
			p.consent.RecordConsent(req.Tenant)
		}
	}

	// 4. 滑动窗口限流，放行即记账
	if allowed, retryAfter := p.limiter.Allow(req.Tenant, req.Class); !allowed {
		metrics.AdmissionRejectsTotal.WithLabelValues("rate_limit").Inc()
		reject := apperrors.New(apperrors.CodeRateLimited,
			fmt.Sprintf("rate limit exceeded for %s requests", req.Class)).
			WithRetryAfter(retryAfter)
		return Decision{Reject: reject, RetryAfter: retryAfter}
	}

	decision := Decision{Allowed: true, Watermark: p.watermark}
	if decision.Watermark {
		metrics.WatermarkFlaggedTotal.Inc()
	}
	return decision
}

// validateText 校验文本非空且不超长
// 长度上限按字符（rune）计，多字节文本不因字节膨胀被误拒
func (p *Pipeline) validateText(text string) *apperrors.AppError {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return apperrors.New(apperrors.CodeTextEmpty, "text is required")
	}
	if utf8.RuneCountInString(trimmed) > p.maxChars {
		return apperrors.New(apperrors.CodeTextTooLong,
			fmt.Sprintf("text must be <= %d chars", p.maxChars))
	}
	return nil
}
