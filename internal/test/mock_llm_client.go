package test

import (
	"context"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"github.com/stretchr/testify/mock"
)

// MockProvider 是一个模拟的提供商
type MockProvider struct {
	mock.Mock
}

// Complete 执行补全请求
func (m *MockProvider) Complete(ctx context.Context, req *providers.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// GetName 返回提供商名称
func (m *MockProvider) GetName() string {
	return "mock"
}

// MockBuilder 总是返回同一个提供商，或返回预设错误
type MockBuilder struct {
	Provider providers.Provider
	Err      error
	Settings []providers.Settings
}

// Build 记录设置并返回提供商
func (b *MockBuilder) Build(settings providers.Settings) (providers.Provider, error) {
	b.Settings = append(b.Settings, settings)
	if b.Err != nil {
		return nil, b.Err
	}
	return b.Provider, nil
}
