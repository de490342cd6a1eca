package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// DefaultSDKEndpoint 未配置 base URL 时使用的 Gemini OpenAI 兼容接口
const DefaultSDKEndpoint = "https://generativelanguage.googleapis.com/v1beta/openai/"

// SDKProvider 使用官方 SDK 调用默认厂商接口
type SDKProvider struct {
	client   openai.Client
	endpoint string
	log      *zap.Logger
}

// NewSDK 创建 SDK 提供商。endpoint 为空时使用 DefaultSDKEndpoint。
func NewSDK(settings providers.Settings, endpoint string, httpClient *http.Client, log *zap.Logger) (*SDKProvider, error) {
	if settings.APIKey == "" {
		return nil, providers.ErrMissingAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = DefaultSDKEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithBaseURL(endpoint),
		// 失败直接返回给调用方
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &SDKProvider{
		client:   openai.NewClient(opts...),
		endpoint: endpoint,
		log:      log,
	}, nil
}

// GetName 获取提供商名称
func (p *SDKProvider) GetName() string {
	return "sdk"
}

// Complete 执行一次补全
func (p *SDKProvider) Complete(ctx context.Context, req *providers.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.StructuredOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		p.log.Warn("sdk chat completion failed",
			zap.String("endpoint", p.endpoint),
			zap.String("model", req.Model),
			zap.Error(err))
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &providers.StatusError{Provider: p.GetName(), StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
