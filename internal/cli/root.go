package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-math-translator/internal/config"
	"github.com/nerdneilsfield/go-math-translator/internal/logger"
)

// rootOptions 所有子命令共享的标志
type rootOptions struct {
	cfgFile     string
	sourceLang  string
	targetLang  string
	provider    string
	model       string
	debugMode   bool
	verboseMode bool // 显示开发格式日志
	quiet       bool // 不显示进度动画
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "translator",
		Short: "保护数学公式的文本翻译工具",
		Long: `保护数学公式的文本翻译工具。
翻译前把公式、矩阵、上下标、数学符号替换为 [MATH_EXPR_n] 占位符，
翻译后再原样还原，翻译服务不可用时输出原文。

支持的翻译提供商:
  - gemini: Google Gemini（默认）
  - openai: OpenAI GPT 模型
  - compatible / ollama / deepseek: OpenAI 兼容接口
  - raw: 不翻译，只做掩码往返`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "配置文件路径（默认 $HOME/.mathtrans.yaml）")
	flags.StringVarP(&opts.sourceLang, "source", "s", "", "源语言（如 ru）")
	flags.StringVarP(&opts.targetLang, "target", "t", "", "目标语言（如 en）")
	flags.StringVarP(&opts.provider, "provider", "p", "", "翻译提供商")
	flags.StringVarP(&opts.model, "model", "m", "", "模型名称")
	flags.BoolVar(&opts.debugMode, "debug", false, "启用调试日志")
	flags.BoolVarP(&opts.verboseMode, "verbose", "v", false, "使用便于阅读的日志格式")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "不显示进度动画")

	rootCmd.AddCommand(
		newTranslateCommand(opts),
		newMaskCommand(opts),
		newPatternsCommand(),
		newStatsCommand(opts),
	)

	return rootCmd
}

// loadConfig 加载配置并用命令行标志覆盖
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceLang = o.sourceLang
	}
	if flags.Changed("target") {
		cfg.TargetLang = o.targetLang
	}
	if flags.Changed("provider") && o.provider != cfg.Provider {
		// 换了提供商时模型和地址随之回到该提供商的默认值
		cfg.Provider = o.provider
		cfg.Model = ""
		cfg.BaseURL = ""
		cfg.APIKey = ""
	}
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debugMode
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.verboseMode
	}

	cfg.ApplyProviderDefaults()
	return cfg, nil
}

// newLogger 按配置创建日志记录器
func newLogger(cfg *config.Config) *zap.Logger {
	return logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose)
}
