// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证错误 (2xxx)
	CodeAPIKeyMissing ErrorCode = "2001"
	CodeAPIKeyInvalid ErrorCode = "2002"

	// 请求校验错误 (3xxx)
	CodeTextEmpty           ErrorCode = "3001"
	CodeTextTooLong         ErrorCode = "3002"
	CodeUploadTypeInvalid   ErrorCode = "3003"
	CodeUploadTooLarge      ErrorCode = "3004"
	CodeVoiceNotFound       ErrorCode = "3005"

	// 策略拒绝 (4xxx)
	CodeRateLimited     ErrorCode = "4001"
	CodeCircuitOpen     ErrorCode = "4002"
	CodeConsentRequired ErrorCode = "4003"

	// 外部服务错误 (5xxx)
	CodeCacheError     ErrorCode = "5001"
	CodeLedgerError    ErrorCode = "5002"
	CodeInferenceError ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	HTTPStatus int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Err        error         `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// WithRetryAfter 附加重试提示，策略拒绝类错误使用
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeTextEmpty, CodeTextTooLong,
		CodeUploadTypeInvalid, CodeUploadTooLarge, CodeConsentRequired:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeAPIKeyMissing, CodeAPIKeyInvalid:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeVoiceNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests, CodeRateLimited, CodeCircuitOpen:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrAPIKeyMissing = New(CodeAPIKeyMissing, "api key missing")
	ErrAPIKeyInvalid = New(CodeAPIKeyInvalid, "invalid api key")

	ErrVoiceNotFound = New(CodeVoiceNotFound, "voice profile not found")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
