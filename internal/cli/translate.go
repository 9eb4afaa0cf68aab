package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-math-translator/internal/config"
	"github.com/nerdneilsfield/go-math-translator/internal/document"
	"github.com/nerdneilsfield/go-math-translator/pkg/mathsafe"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/stats"
)

// stdoutPath 输出路径为 "-" 时写到标准输出
const stdoutPath = "-"

func newTranslateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <input> [output]",
		Short: "翻译文档，保持数学公式不变",
		Long: `读取 txt/md/pdf/docx/html 文档，掩码数学公式后交给翻译提供商，再还原公式。
未指定输出路径时写入输入文件旁的 translated_<name>；输出为 "-" 时写到标准输出。
翻译失败时输出原文，命令本身不失败。`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("配置无效: %w", err)
			}

			log := newLogger(cfg)
			defer func() {
				_ = log.Sync()
			}()

			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			return runTranslate(cmd, opts, cfg, log, args[0], output)
		},
	}
}

func runTranslate(cmd *cobra.Command, opts *rootOptions, cfg *config.Config, log *zap.Logger, input, output string) error {
	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	provider, err := factory.CreateProvider(cfg)
	if err != nil {
		return err
	}

	statsManager := stats.NewStatsManager(cfg.StatsFile, log)
	if err := statsManager.LoadFromDB(); err != nil {
		log.Warn("failed to load provider stats", zap.Error(err))
	}

	translator, err := mathsafe.New(
		provider,
		mathsafe.Config{
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
			Timeout:    time.Duration(cfg.RequestTimeout) * time.Second,
		},
		mathsafe.WithLogger(log),
		mathsafe.WithObserver(statsManager),
	)
	if err != nil {
		return err
	}

	stop := startSpinner(cmd.ErrOrStderr(), opts.quiet, fmt.Sprintf("正在通过 %s 翻译 %s", cfg.Provider, filepath.Base(input)))
	outcome, err := translator.Translate(cmd.Context(), doc.Text)
	stop()
	if errors.Is(err, mathsafe.ErrNothingToTranslate) {
		return fmt.Errorf("%s 中没有可翻译的文本", input)
	}
	if err != nil {
		return err
	}

	if err := statsManager.SaveToDB(); err != nil {
		log.Warn("failed to save provider stats", zap.Error(err))
	}

	if output == "" {
		output = defaultOutputPath(cfg, doc)
	}
	if err := writeOutput(cmd.OutOrStdout(), output, outcome.Text); err != nil {
		return err
	}

	reportOutcome(cmd.ErrOrStderr(), outcome, output)
	return nil
}

// defaultOutputPath 输出到 output_dir 或输入文件所在目录
func defaultOutputPath(cfg *config.Config, doc *document.Document) string {
	dir := cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(doc.Path)
	}
	return filepath.Join(dir, document.OutputName(doc.Path, doc.Format))
}

func writeOutput(stdout io.Writer, path, text string) error {
	if path == stdoutPath {
		_, err := io.WriteString(stdout, text)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

// reportOutcome 打印翻译结果摘要
func reportOutcome(w io.Writer, outcome *mathsafe.Outcome, output string) {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow, color.Bold)

	if outcome.Translated {
		ok.Fprint(w, "✓ ")
		fmt.Fprintf(w, "已翻译，保护了 %d 个数学片段 (%s, %s)\n", outcome.Placeholders, outcome.Model, outcome.Duration.Round(time.Millisecond))
	} else {
		warn.Fprint(w, "! ")
		fmt.Fprintf(w, "翻译失败，已输出原文: %s\n", failureReason(outcome.Failure))
	}

	if len(outcome.MissingPlaceholders) > 0 {
		warn.Fprint(w, "! ")
		fmt.Fprintf(w, "译文丢失了 %d 个数学片段: %v\n", len(outcome.MissingPlaceholders), outcome.MissingPlaceholders)
	}

	if output != stdoutPath {
		fmt.Fprintf(w, "输出文件: %s\n", output)
	}
}

func failureReason(err *providers.Error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// startSpinner 显示进度动画，返回停止函数
func startSpinner(w io.Writer, quiet bool, text string) func() {
	if quiet {
		return func() {}
	}

	spinner, err := pterm.DefaultSpinner.WithWriter(w).WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return func() {}
	}
	return func() {
		_ = spinner.Stop()
	}
}
