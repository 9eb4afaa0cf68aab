package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/retry"
	"github.com/tidwall/gjson"
)

// DefaultEndpoint Gemini REST 接口地址
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Config Gemini配置
type Config struct {
	providers.BaseConfig
	Model       string            `json:"model"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gemini-2.5-flash",
		Temperature: 0.2,
		RetryConfig: retry.DefaultRetryConfig(),
	}
}

// Provider Gemini提供商
type Provider struct {
	config      Config
	retryClient *retry.RetryableHTTPClient
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的Gemini提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")
	config.Model = strings.TrimPrefix(config.Model, "models/")
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	config.RetryConfig.MaxRetries = config.MaxRetries

	httpClient := &http.Client{Timeout: config.Timeout}
	return &Provider{
		config:      config,
		retryClient: retry.NewNetworkRetrier(config.RetryConfig).WrapHTTPClient(httpClient),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "gemini"
}

// Rewrite 执行翻译
func (p *Provider) Rewrite(ctx context.Context, req *providers.Request) providers.Result {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return providers.Failed(providers.WrapError(err, providers.CodeUnknown, "failed to marshal request"))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.config.APIEndpoint, p.config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return providers.Failed(providers.WrapError(err, providers.CodeUnknown, "failed to create request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.retryClient.Do(httpReq)
	if err != nil {
		return providers.Failed(providers.WrapError(err, providers.CodeNetwork, "failed to execute request"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Failed(providers.WrapError(err, providers.CodeNetwork, "failed to read response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "API error: " + resp.Status
		}
		e := providers.NewError(providers.CodeForStatus(resp.StatusCode), msg)
		e.Details = map[string]interface{}{"status": resp.StatusCode}
		return providers.Failed(e)
	}

	result := ParseResponse(raw)
	if result.OK() && result.Model == "" {
		result.Model = p.config.Model
	}
	return result
}

// ParseResponse 将 generateContent 的响应解析为纯文本或类型化失败，调用方无需了解响应结构
func ParseResponse(raw []byte) providers.Result {
	if !gjson.ValidBytes(raw) {
		return providers.Failed(providers.NewError(providers.CodeMalformedResponse, "response is not valid JSON"))
	}
	doc := gjson.ParseBytes(raw)

	if reason := doc.Get("promptFeedback.blockReason").String(); reason != "" {
		e := providers.NewError(providers.CodeBlocked, "prompt blocked: "+reason)
		return providers.Failed(e)
	}

	candidates := doc.Get("candidates")
	if !candidates.Exists() || len(candidates.Array()) == 0 {
		return providers.Failed(providers.NewError(providers.CodeEmptyResponse, "no candidates returned"))
	}

	parts := candidates.Get("0.content.parts")
	if !parts.IsArray() {
		finish := candidates.Get("0.finishReason").String()
		return providers.Failed(providers.NewError(providers.CodeMalformedResponse,
			"candidate has no content parts (finishReason="+finish+")"))
	}

	var sb strings.Builder
	for _, part := range parts.Array() {
		sb.WriteString(part.Get("text").String())
	}

	result := providers.Success(strings.TrimSpace(sb.String()))
	if !result.OK() {
		return result
	}
	result.Model = doc.Get("modelVersion").String()
	result.TokensIn = int(doc.Get("usageMetadata.promptTokenCount").Int())
	result.TokensOut = int(doc.Get("usageMetadata.candidatesTokenCount").Int())
	return result
}

func (p *Provider) buildRequest(req *providers.Request) generateRequest {
	gr := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: providers.SystemPrompt(req)}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: providers.UserPrompt(req)}}},
		},
	}
	if p.config.Temperature > 0 || p.config.MaxTokens > 0 {
		gr.GenerationConfig = &generationConfig{
			Temperature:     p.config.Temperature,
			MaxOutputTokens: p.config.MaxTokens,
		}
	}
	return gr
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}
