package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
)

// 预定义错误
var (
	// ErrNoProvider 未设置提供商构建器
	ErrNoProvider = errors.New("provider builder not configured")

	// ErrConnectionCheck 连接测试未得到预期回复
	ErrConnectionCheck = errors.New("unexpected connection test reply")
)

// 错误代码常量
const (
	ErrCodeConfig     = "CONFIG_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeProvider   = "PROVIDER_ERROR"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeTimeout    = "TIMEOUT_ERROR"
)

// TranslationError 翻译错误
type TranslationError struct {
	Code       string // 错误代码
	Message    string // 错误消息
	Cause      error  // 原因
	StatusCode int    // 上游状态码，没有时为 0
}

// Error 实现error接口
func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// NewTranslationError 创建翻译错误
func NewTranslationError(code, message string, cause error) *TranslationError {
	return &TranslationError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapError 按错误类型包装为 TranslationError
func WrapError(err error, message string) *TranslationError {
	if err == nil {
		return nil
	}

	var te *TranslationError
	if errors.As(err, &te) {
		return te
	}

	code := ErrCodeNetwork
	status := 0
	var statusErr *providers.StatusError
	switch {
	case errors.Is(err, providers.ErrMissingAPIKey):
		code = ErrCodeConfig
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.As(err, &statusErr):
		code = ErrCodeProvider
		status = statusErr.StatusCode
	}

	return &TranslationError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StatusCode: status,
	}
}

// IsConfigError 是否为配置错误
func IsConfigError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te) && te.Code == ErrCodeConfig
}
