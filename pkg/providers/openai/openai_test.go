package openai

import (
	"context"
	"net/http"
	"testing"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/test"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://api.example.com/v1":                    "https://api.example.com/v1",
		"https://api.example.com/v1/":                   "https://api.example.com/v1",
		"https://api.example.com/v1/chat/completions":   "https://api.example.com/v1",
		"https://api.example.com/v1/chat/completions/ ": "https://api.example.com/v1",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBaseURL(in), in)
	}
}

func TestCompatibleComplete(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.AddResponse("hello", `{"translations": ["你好"]}`)

	p, err := NewCompatible(providers.Settings{Model: "m1", BaseURL: mock.URL + "/chat/completions", APIKey: "sk-test-123456"}, nil, zap.NewNop())
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), &providers.Request{
		Model:            "m1",
		Prompt:           "hello",
		Temperature:      providers.DefaultTemperature,
		StructuredOutput: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"translations": ["你好"]}`, out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/chat/completions", reqs[0].Path)
	assert.Equal(t, "Bearer sk-test-123456", reqs[0].Authorization)
	assert.Equal(t, "m1", reqs[0].Model)
	assert.InDelta(t, 0.1, reqs[0].Temperature, 1e-6)
	assert.Equal(t, "json_object", reqs[0].ResponseFormat)
}

func TestCompatibleStatusError(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.SetStatusCode(http.StatusUnauthorized)

	p, err := NewCompatible(providers.Settings{BaseURL: mock.URL, APIKey: "k"}, nil, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &providers.Request{Model: "m", Prompt: "x"})
	require.Error(t, err)
	var statusErr *providers.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Len(t, mock.Requests(), 1, "no retry")
}

func TestMissingAPIKey(t *testing.T) {
	_, err := NewCompatible(providers.Settings{BaseURL: "http://localhost"}, nil, nil)
	assert.ErrorIs(t, err, providers.ErrMissingAPIKey)

	_, err = NewSDK(providers.Settings{}, "", nil, nil)
	assert.ErrorIs(t, err, providers.ErrMissingAPIKey)
}

func TestSDKComplete(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.SetDefaultResponse("Connected")

	p, err := NewSDK(providers.Settings{Model: providers.DefaultModel, APIKey: "gm-key"}, mock.URL, nil, zap.NewNop())
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), &providers.Request{
		Model:       providers.DefaultModel,
		Prompt:      "ping",
		Temperature: providers.DefaultTemperature,
	})
	require.NoError(t, err)
	assert.Equal(t, "Connected", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/chat/completions", reqs[0].Path)
	assert.Equal(t, "Bearer gm-key", reqs[0].Authorization)
	assert.Equal(t, providers.DefaultModel, reqs[0].Model)
	assert.Empty(t, reqs[0].ResponseFormat)
}

func TestSDKStatusErrorNoRetry(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.SetStatusCode(http.StatusInternalServerError)

	p, err := NewSDK(providers.Settings{APIKey: "k"}, mock.URL, nil, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &providers.Request{Model: "m", Prompt: "x"})
	require.Error(t, err)
	var statusErr *providers.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Len(t, mock.Requests(), 1)
}

func TestMaskAuthToken(t *testing.T) {
	assert.Equal(t, "****", MaskAuthToken("short"))
	assert.Equal(t, "sk-a****wxyz", MaskAuthToken("sk-abcdefwxyz"))
}
