package factory

import (
	"fmt"
	"time"

	"github.com/nerdneilsfield/go-math-translator/internal/config"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/compatible"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/gemini"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/raw"
)

// CreateProvider 根据配置创建提供商
func CreateProvider(cfg *config.Config) (providers.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return createGeminiProvider(cfg), nil
	case config.ProviderOpenAI:
		return createOpenAIProvider(cfg), nil
	case config.ProviderCompatible, config.ProviderOllama, config.ProviderDeepSeek:
		return createCompatibleProvider(cfg), nil
	case config.ProviderRaw, "none":
		return raw.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

func baseConfig(cfg *config.Config) providers.BaseConfig {
	base := providers.DefaultConfig()
	base.APIKey = cfg.APIKey
	base.APIEndpoint = cfg.BaseURL
	base.MaxRetries = cfg.MaxRetries
	if cfg.RequestTimeout > 0 {
		base.Timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	return base
}

// createGeminiProvider 创建 Gemini 提供商
func createGeminiProvider(cfg *config.Config) providers.Provider {
	c := gemini.DefaultConfig()
	c.BaseConfig = baseConfig(cfg)
	if cfg.Model != "" {
		c.Model = cfg.Model
	}
	c.Temperature = float32(cfg.Temperature)
	c.MaxTokens = cfg.MaxTokens
	return gemini.New(c)
}

// createOpenAIProvider 创建 OpenAI 提供商
func createOpenAIProvider(cfg *config.Config) providers.Provider {
	c := openai.DefaultConfig()
	c.BaseConfig = baseConfig(cfg)
	if cfg.Model != "" {
		c.Model = cfg.Model
	}
	c.Temperature = float32(cfg.Temperature)
	c.MaxTokens = cfg.MaxTokens
	return openai.New(c)
}

// createCompatibleProvider 创建 OpenAI 兼容接口提供商
func createCompatibleProvider(cfg *config.Config) providers.Provider {
	c := compatible.DefaultConfig()
	c.BaseConfig = baseConfig(cfg)
	if cfg.Model != "" {
		c.Model = cfg.Model
	}
	c.Temperature = float32(cfg.Temperature)
	c.MaxTokens = cfg.MaxTokens
	return compatible.New(c)
}
