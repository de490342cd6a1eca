package factory

import (
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers/openai"
	"go.uber.org/zap"
)

// Factory 根据当前设置构建提供商
type Factory struct {
	// SDKEndpoint 覆盖 SDK 默认接口地址，测试时指向模拟服务器
	SDKEndpoint string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// New 创建工厂
func New(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{Logger: logger}
}

// Build 配置了 base URL 时使用 REST 兼容接口，否则使用 SDK
func (f *Factory) Build(settings providers.Settings) (providers.Provider, error) {
	if strings.TrimSpace(settings.BaseURL) != "" {
		return openai.NewCompatible(settings, f.HTTPClient, f.Logger)
	}
	return openai.NewSDK(settings, f.SDKEndpoint, f.HTTPClient, f.Logger)
}
