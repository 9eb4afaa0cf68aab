package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// getModel 根据字符串获取模型常量
func getModel(model string) openai.ChatModel {
	switch model {
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	case "gpt-4-turbo", "gpt-4-turbo-preview":
		return openai.ChatModelGPT4Turbo
	default:
		// 对于新模型或自定义模型，使用字符串
		return openai.ChatModel(model)
	}
}

// Config OpenAI配置（使用官方SDK）
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	OrgID       string  `json:"org_id,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
	}
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的OpenAI提供商
func New(config Config) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}

	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}

// Rewrite 执行翻译
func (p *Provider) Rewrite(ctx context.Context, req *providers.Request) providers.Result {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(providers.SystemPrompt(req)),
			openai.UserMessage(providers.UserPrompt(req)),
		},
		Model: getModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(p.config.Temperature))
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return providers.Failed(classify(err))
	}

	if len(completion.Choices) == 0 {
		return providers.Failed(providers.NewError(providers.CodeEmptyResponse, "no choices returned from OpenAI"))
	}

	result := providers.Success(strings.TrimSpace(completion.Choices[0].Message.Content))
	if !result.OK() {
		return result
	}
	result.Model = completion.Model
	result.TokensIn = int(completion.Usage.PromptTokens)
	result.TokensOut = int(completion.Usage.CompletionTokens)
	return result
}

// classify 将SDK错误转换为提供商错误
func classify(err error) *providers.Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		e := providers.WrapError(err, providers.CodeForStatus(apiErr.StatusCode), "openai chat completion failed")
		e.Details = map[string]interface{}{"status": apiErr.StatusCode}
		return e
	}
	return providers.WrapError(err, providers.CodeNetwork, "openai chat completion failed")
}
