package translation

import (
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"go.uber.org/zap"
)

// ProviderBuilder 根据设置构建提供商
type ProviderBuilder interface {
	Build(settings providers.Settings) (providers.Provider, error)
}

// SettingsSource 返回当前的提供商设置，每次调用时读取
type SettingsSource func() providers.Settings

// Option 服务配置选项函数
type Option func(*serviceOptions)

// serviceOptions 服务内部选项
type serviceOptions struct {
	builder          ProviderBuilder
	structuredOutput bool
	logger           *zap.Logger
}

// WithProviderBuilder 设置提供商构建器
func WithProviderBuilder(builder ProviderBuilder) Option {
	return func(o *serviceOptions) {
		o.builder = builder
	}
}

// WithStructuredOutput 段落翻译请求 JSON 输出
func WithStructuredOutput(enabled bool) Option {
	return func(o *serviceOptions) {
		o.structuredOutput = enabled
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}
