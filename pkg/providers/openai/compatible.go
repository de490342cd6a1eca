package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const chatCompletionsPath = "/chat/completions"

// CompatibleProvider 通过 OpenAI 兼容的 REST 接口调用任意服务
type CompatibleProvider struct {
	client  *goopenai.Client
	baseURL string
	log     *zap.Logger
}

// NormalizeBaseURL 去掉末尾的斜杠和 /chat/completions 后缀，
// 因为 go-openai 会自行追加该路径
func NormalizeBaseURL(baseURL string) string {
	base := strings.TrimSpace(baseURL)
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, chatCompletionsPath)
	return strings.TrimRight(base, "/")
}

// NewCompatible 创建 OpenAI 兼容提供商
func NewCompatible(settings providers.Settings, httpClient *http.Client, log *zap.Logger) (*CompatibleProvider, error) {
	if settings.APIKey == "" {
		return nil, providers.ErrMissingAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	cfg := goopenai.DefaultConfig(settings.APIKey)
	cfg.BaseURL = NormalizeBaseURL(settings.BaseURL)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	log.Debug("configured compatible provider",
		zap.String("base_url", cfg.BaseURL),
		zap.String("api_key", MaskAuthToken(settings.APIKey)))

	return &CompatibleProvider{
		client:  goopenai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
		log:     log,
	}, nil
}

// GetName 获取提供商名称
func (p *CompatibleProvider) GetName() string {
	return "openai-compatible"
}

// Complete 执行一次补全
func (p *CompatibleProvider) Complete(ctx context.Context, req *providers.Request) (string, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
	}
	if req.StructuredOutput {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		p.log.Warn("chat completion failed",
			zap.String("base_url", p.baseURL),
			zap.String("model", req.Model),
			zap.Error(err))
		return "", convertError(p.GetName(), err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func convertError(name string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &providers.StatusError{Provider: name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &providers.StatusError{Provider: name, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}

// MaskAuthToken 隐藏密钥中间部分用于日志
func MaskAuthToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
