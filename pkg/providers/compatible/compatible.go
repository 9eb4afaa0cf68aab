// Package compatible 面向 OpenAI 兼容接口（Ollama、DeepSeek、vLLM 等）的翻译适配器。
package compatible

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/sashabaranov/go-openai"
)

// DefaultEndpoint 默认指向本地 Ollama
const DefaultEndpoint = "http://localhost:11434/v1"

// Config 兼容接口配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "qwen2.5:7b",
		Temperature: 0.2,
	}
}

// Provider 兼容接口提供商
type Provider struct {
	config Config
	client *openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建兼容接口提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimRight(config.APIEndpoint, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "compatible"
}

// Rewrite 执行翻译
func (p *Provider) Rewrite(ctx context.Context, req *providers.Request) providers.Result {
	chatReq := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: providers.SystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: providers.UserPrompt(req)},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return providers.Failed(classify(err))
	}

	if len(resp.Choices) == 0 {
		return providers.Failed(providers.NewError(providers.CodeEmptyResponse, "no choices returned"))
	}

	result := providers.Success(strings.TrimSpace(resp.Choices[0].Message.Content))
	if !result.OK() {
		return result
	}
	result.Model = resp.Model
	result.TokensIn = resp.Usage.PromptTokens
	result.TokensOut = resp.Usage.CompletionTokens
	return result
}

// classify 将客户端错误转换为提供商错误
func classify(err error) *providers.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := providers.WrapError(err, providers.CodeForStatus(apiErr.HTTPStatusCode), apiErr.Message)
		e.Details = map[string]interface{}{"status": apiErr.HTTPStatusCode}
		return e
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return providers.WrapError(err, providers.CodeForStatus(reqErr.HTTPStatusCode), "request failed")
	}

	return providers.WrapError(err, providers.CodeNetwork, "chat completion failed")
}
