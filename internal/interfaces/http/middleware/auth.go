// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/domain/repository"
	"tts-gateway/pkg/errors"
	"tts-gateway/pkg/logger"
)

// TenantContextKey 认证通过后租户标识在 gin Context 中的键
const TenantContextKey = "tenant"

// AuthConfig 认证配置
type AuthConfig struct {
	// HeaderName 凭证请求头，默认 X-API-Key
	HeaderName string
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
}

// Auth API Key 认证中间件
// 缺失与无效凭证统一返回 401，不泄露凭证是否存在
func Auth(cfg AuthConfig, validator repository.KeyValidator) gin.HandlerFunc {
	header := cfg.HeaderName
	if header == "" {
		header = "X-API-Key"
	}

	skipMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}
		for path := range skipMap {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		apiKey := c.GetHeader(header)
		if apiKey == "" {
			abortUnauthorized(c, "missing api key")
			return
		}

		valid, err := validator.Validate(c.Request.Context(), apiKey)
		if err != nil {
			logger.Error(c.Request.Context(), "api key validation failed", err)
			abortUnauthorized(c, "invalid api key")
			return
		}
		if !valid {
			abortUnauthorized(c, "invalid api key")
			return
		}

		// 注入租户信息到 Context
		c.Set(TenantContextKey, apiKey)
		ctx := logger.WithContext(c.Request.Context(), logger.TenantKey, apiKey)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Tenant 从 gin Context 取出认证后的租户标识
func Tenant(c *gin.Context) string {
	return c.GetString(TenantContextKey)
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":       http.StatusUnauthorized,
		"message":    msg,
		"error_code": string(errors.CodeAPIKeyInvalid),
		"trace_id":   c.GetString("trace_id"),
	})
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
