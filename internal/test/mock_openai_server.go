package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockOpenAIServer 是一个模拟的 OpenAI 兼容聊天补全服务器
type MockOpenAIServer struct {
	Server          *httptest.Server
	URL             string
	Responses       map[string]string
	DefaultResponse string
	StatusCode      int
	DelayMs         int
	requests        []MockRequest
	mu              sync.Mutex
}

// MockRequest 记录请求信息
type MockRequest struct {
	Path           string
	Authorization  string
	Model          string
	Prompt         string
	Temperature    float64
	ResponseFormat string
}

// NewMockOpenAIServer 创建一个新的模拟服务器
func NewMockOpenAIServer(t *testing.T) *MockOpenAIServer {
	mock := &MockOpenAIServer{
		Responses:       make(map[string]string),
		DefaultResponse: "这是翻译后的文本",
		StatusCode:      http.StatusOK,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"message": "无法解析请求体", "type": "invalid_request_error"}}`))
			return
		}

		req := MockRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Model:         body.Model,
			Temperature:   body.Temperature,
		}
		for _, msg := range body.Messages {
			if msg.Role == "user" {
				req.Prompt = msg.Content
				break
			}
		}
		if body.ResponseFormat != nil {
			req.ResponseFormat = body.ResponseFormat.Type
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, req)
		status := mock.StatusCode
		delay := mock.DelayMs
		response, ok := mock.Responses[req.Prompt]
		if !ok {
			response = mock.DefaultResponse
		}
		mock.mu.Unlock()

		if delay > 0 {
			time.Sleep(time.Duration(delay) * time.Millisecond)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "模拟服务器错误", "type": "server_error"}}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   body.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": response,
					},
				},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     100,
				"completion_tokens": 50,
				"total_tokens":      150,
			},
		})
	}))

	mock.Server = server
	mock.URL = server.URL

	t.Cleanup(server.Close)

	return mock
}

// AddResponse 添加特定的提示词-响应对
func (m *MockOpenAIServer) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[prompt] = response
}

// SetDefaultResponse 设置默认响应
func (m *MockOpenAIServer) SetDefaultResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DefaultResponse = response
}

// SetStatusCode 设置返回的状态码
func (m *MockOpenAIServer) SetStatusCode(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCode = code
}

// SetDelay 设置延迟时间（毫秒）
func (m *MockOpenAIServer) SetDelay(delayMs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DelayMs = delayMs
}

// Requests 返回已收到的请求
func (m *MockOpenAIServer) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
