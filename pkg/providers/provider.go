package providers

import (
	"context"
	"errors"
	"fmt"
)

// DefaultTemperature 所有请求使用的采样温度
const DefaultTemperature = 0.1

// DefaultModel 默认模型
const DefaultModel = "gemini-3-flash-preview"

// ErrMissingAPIKey 未配置 API 密钥，只在实际发起调用时报告
var ErrMissingAPIKey = errors.New("api key not configured")

// Settings 提供商设置
type Settings struct {
	Model   string `json:"model"`
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// DefaultSettings 返回默认设置
func DefaultSettings() Settings {
	return Settings{Model: DefaultModel}
}

// Request 一次补全请求
type Request struct {
	Model            string
	Prompt           string
	Temperature      float64
	StructuredOutput bool
}

// Provider 将提示词发送给 LLM 并返回原始文本
type Provider interface {
	// Complete 执行一次补全，不做任何重试
	Complete(ctx context.Context, req *Request) (string, error)

	// GetName 获取提供商名称
	GetName() string
}

// StatusError 上游返回非成功状态码
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error 实现error接口
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}
