package editor

import (
	"github.com/jonboulle/clockwork"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/translation"
	"go.uber.org/zap"
)

// Option 会话配置选项函数
type Option func(*sessionOptions)

type sessionOptions struct {
	translator translation.Translator
	builder    translation.ProviderBuilder
	settings   *config.SettingsStore
	clock      clockwork.Clock
	logger     *zap.Logger
	newID      document.IDGenerator
}

// WithTranslator 直接指定翻译器，不再通过提供商构建
func WithTranslator(tr translation.Translator) Option {
	return func(o *sessionOptions) {
		o.translator = tr
	}
}

// WithProviderBuilder 设置提供商构建器，默认使用 factory.New
func WithProviderBuilder(builder translation.ProviderBuilder) Option {
	return func(o *sessionOptions) {
		o.builder = builder
	}
}

// WithSettingsStore 设置持久化存储。未设置时风格和提供商设置只保存在内存中。
func WithSettingsStore(store *config.SettingsStore) Option {
	return func(o *sessionOptions) {
		o.settings = store
	}
}

// WithClock 设置时钟
func WithClock(clock clockwork.Clock) Option {
	return func(o *sessionOptions) {
		o.clock = clock
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithIDGenerator 设置新句子和段落的 id 生成器
func WithIDGenerator(gen document.IDGenerator) Option {
	return func(o *sessionOptions) {
		o.newID = gen
	}
}
