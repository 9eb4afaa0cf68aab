package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// 支持的提供商名称
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderCompatible = "compatible"
	ProviderOllama     = "ollama"
	ProviderDeepSeek   = "deepseek"
	ProviderRaw        = "raw"
)

// Config 保存翻译器的所有配置
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	// 提供商配置
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	RequestTimeout int `mapstructure:"request_timeout"` // 请求超时时间（秒）
	MaxRetries     int `mapstructure:"max_retries"`     // 最大重试次数

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"` // 详细模式，控制台输出开发格式日志

	OutputDir string `mapstructure:"output_dir"` // 译文输出目录，空表示与输入同目录
	StatsFile string `mapstructure:"stats_file"` // 提供商统计文件，设为空字符串则不持久化
}

// 预置提供商的模型与地址
var providerDefaults = map[string]struct {
	model   string
	baseURL string
	envKey  string
}{
	ProviderGemini:     {"gemini-2.5-flash", "https://generativelanguage.googleapis.com/v1beta", "GEMINI_API_KEY"},
	ProviderOpenAI:     {"gpt-4o-mini", "https://api.openai.com/v1", "OPENAI_API_KEY"},
	ProviderCompatible: {"qwen2.5:7b", "http://localhost:11434/v1", "OPENAI_API_KEY"},
	ProviderOllama:     {"qwen2.5:7b", "http://localhost:11434/v1", ""},
	ProviderDeepSeek:   {"deepseek-chat", "https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	ProviderRaw:        {"", "", ""},
}

// Providers 返回所有支持的提供商名称
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderCompatible, ProviderOllama, ProviderDeepSeek, ProviderRaw}
}

// LoadConfig 从文件加载配置。
// 读取顺序：默认值、配置文件、.env 与 MATHTRANS_ 前缀的环境变量。
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 查找家目录中的配置文件
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".mathtrans")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix("MATHTRANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.ApplyProviderDefaults()
	return &config, nil
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	config := &Config{
		SourceLang:     "ru",
		TargetLang:     "en",
		Provider:       ProviderGemini,
		Temperature:    0.2,
		RequestTimeout: 120,
		MaxRetries:     3,
		StatsFile:      DefaultStatsFile(),
	}
	config.ApplyProviderDefaults()
	return config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	defaults := NewDefaultConfig()

	v.SetDefault("source_lang", defaults.SourceLang)
	v.SetDefault("target_lang", defaults.TargetLang)
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", defaults.Temperature)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("output_dir", "")
	v.SetDefault("stats_file", defaults.StatsFile)
}

// ApplyProviderDefaults 为未设置的模型、地址和密钥补上提供商默认值
func (c *Config) ApplyProviderDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	d, ok := providerDefaults[c.Provider]
	if !ok {
		return
	}

	if c.Model == "" {
		c.Model = d.model
	}
	if c.BaseURL == "" {
		c.BaseURL = d.baseURL
	}
	if c.APIKey == "" && d.envKey != "" {
		c.APIKey = os.Getenv(d.envKey)
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, ok := providerDefaults[c.Provider]; !ok {
		return fmt.Errorf("unsupported provider: %q (supported: %s)", c.Provider, strings.Join(Providers(), ", "))
	}

	if _, err := language.Parse(c.SourceLang); err != nil {
		return fmt.Errorf("invalid source language %q: %w", c.SourceLang, err)
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("invalid target language %q: %w", c.TargetLang, err)
	}

	if c.NeedsAPIKey() && c.APIKey == "" {
		return fmt.Errorf("provider %s requires an API key", c.Provider)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %d", c.RequestTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}

	return nil
}

// NeedsAPIKey 提供商是否需要密钥
func (c *Config) NeedsAPIKey() bool {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderDeepSeek:
		return true
	default:
		return false
	}
}

// DefaultStatsFile 返回默认的统计文件路径
func DefaultStatsFile() string {
	// 优先使用系统缓存目录
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "mathtrans", "stats.json")
}
