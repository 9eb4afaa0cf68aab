package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(url string) *Provider {
	config := DefaultConfig()
	config.APIKey = "test-api-key"
	config.APIEndpoint = url
	config.MaxRetries = 0
	config.Model = "models/gemini-2.5-flash"
	return New(config)
}

func TestProvider_Rewrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "[MATH_EXPR_0] est vrai")
		require.NotNil(t, req.SystemInstruction)
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, "English")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "  [MATH_EXPR_0] is "}, {"text": "true\n"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4},
			"modelVersion": "gemini-2.5-flash-001"
		}`))
	}))
	defer server.Close()

	result := newTestProvider(server.URL).Rewrite(context.Background(), &providers.Request{
		Text:       "[MATH_EXPR_0] est vrai",
		SourceLang: "fr",
		TargetLang: "en",
	})

	require.True(t, result.OK(), "unexpected failure: %v", result.Failure)
	assert.Equal(t, "[MATH_EXPR_0] is true", result.Text)
	assert.Equal(t, "gemini-2.5-flash-001", result.Model)
	assert.Equal(t, 12, result.TokensIn)
	assert.Equal(t, 4, result.TokensOut)
}

func TestProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid"}}`))
	}))
	defer server.Close()

	result := newTestProvider(server.URL).Rewrite(context.Background(), &providers.Request{Text: "x"})

	require.False(t, result.OK())
	assert.Equal(t, providers.CodeAuth, result.Failure.Code)
	assert.Equal(t, "API key not valid", result.Failure.Message)
}

func TestProvider_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result := newTestProvider(url).Rewrite(context.Background(), &providers.Request{Text: "x"})

	require.False(t, result.OK())
	assert.Equal(t, providers.CodeNetwork, result.Failure.Code)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
		text string
	}{
		{
			name: "正常响应",
			body: `{"candidates":[{"content":{"parts":[{"text":"Hola"}]}}]}`,
			text: "Hola",
		},
		{
			name: "没有候选",
			body: `{"candidates":[]}`,
			code: providers.CodeEmptyResponse,
		},
		{
			name: "缺少候选字段",
			body: `{}`,
			code: providers.CodeEmptyResponse,
		},
		{
			name: "候选没有内容",
			body: `{"candidates":[{"finishReason":"SAFETY"}]}`,
			code: providers.CodeMalformedResponse,
		},
		{
			name: "空白文本",
			body: `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`,
			code: providers.CodeEmptyResponse,
		},
		{
			name: "提示词被拦截",
			body: `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			code: providers.CodeBlocked,
		},
		{
			name: "非法JSON",
			body: `{"candidates":`,
			code: providers.CodeMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseResponse([]byte(tt.body))
			if tt.code == "" {
				require.True(t, result.OK(), "unexpected failure: %v", result.Failure)
				assert.Equal(t, tt.text, result.Text)
				return
			}
			require.False(t, result.OK())
			assert.Equal(t, tt.code, result.Failure.Code)
		})
	}
}

func TestBuildRequestPrompt(t *testing.T) {
	p := New(DefaultConfig())
	gr := p.buildRequest(&providers.Request{Text: "[MATH_EXPR_0]", TargetLang: "ru"})

	require.NotNil(t, gr.SystemInstruction)
	assert.True(t, strings.Contains(gr.SystemInstruction.Parts[0].Text, "Russian"))
	assert.Contains(t, gr.SystemInstruction.Parts[0].Text, providers.PlaceholderExample)
}
