package translation

import (
	"context"
	"strings"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"go.uber.org/zap"
)

// Translator 是编辑会话依赖的翻译能力
type Translator interface {
	// TranslateText 正向翻译单句，空白文本直接返回空串
	TranslateText(ctx context.Context, text, stylePrompt string) (string, error)

	// TranslateParagraph 批量翻译，结果长度恒等于 len(sentences)
	TranslateParagraph(ctx context.Context, sentences []string, stylePrompt string) ([]string, error)

	// ReverseTranslate 根据修改后的译文回写原文
	ReverseTranslate(ctx context.Context, original, modified, surrounding string) (string, error)
}

// Service 通过提供商完成各类翻译请求。提供商在每次调用时按最新设置构建，
// 因此缺少密钥等配置问题只在调用时报告。
type Service struct {
	settings SettingsSource
	options  serviceOptions
}

// New 创建翻译服务
func New(settings SettingsSource, opts ...Option) (*Service, error) {
	if settings == nil {
		return nil, NewTranslationError(ErrCodeConfig, "settings source is nil", nil)
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.builder == nil {
		return nil, ErrNoProvider
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	return &Service{settings: settings, options: options}, nil
}

// complete 构建提供商并发送一次请求
func (s *Service) complete(ctx context.Context, prompt string, structured bool) (string, error) {
	settings := s.settings()
	model := settings.Model
	if model == "" {
		model = providers.DefaultModel
	}

	provider, err := s.options.builder.Build(settings)
	if err != nil {
		return "", WrapError(err, "provider unavailable")
	}

	out, err := provider.Complete(ctx, &providers.Request{
		Model:            model,
		Prompt:           prompt,
		Temperature:      providers.DefaultTemperature,
		StructuredOutput: structured,
	})
	if err != nil {
		s.options.logger.Debug("provider call failed",
			zap.String("provider", provider.GetName()),
			zap.String("model", model),
			zap.Error(err))
		return "", WrapError(err, "provider request failed")
	}
	return out, nil
}

// TranslateText 正向翻译单句
func (s *Service) TranslateText(ctx context.Context, text, stylePrompt string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return s.complete(ctx, TextPrompt(text, stylePrompt), false)
}

// TranslateParagraph 批量翻译段落中的句子
func (s *Service) TranslateParagraph(ctx context.Context, sentences []string, stylePrompt string) ([]string, error) {
	raw, err := s.complete(ctx, ParagraphPrompt(sentences, stylePrompt), s.options.structuredOutput)
	if err != nil {
		return nil, err
	}
	return ParseTranslations(raw, len(sentences)), nil
}

// ReverseTranslate 根据修改后的译文回写原文
func (s *Service) ReverseTranslate(ctx context.Context, original, modified, surrounding string) (string, error) {
	return s.complete(ctx, ReversePrompt(original, modified, surrounding), false)
}

// TestConnection 发送探测请求，回复中包含 connected 即视为连通
func (s *Service) TestConnection(ctx context.Context) error {
	out, err := s.complete(ctx, ConnectionProbe, false)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(out), "connected") {
		return NewTranslationError(ErrCodeValidation, "connection test failed", ErrConnectionCheck)
	}
	return nil
}
