// Package mathsafe 把掩码、翻译适配器和还原串成一条失败时放行原文的翻译流水线。
package mathsafe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-math-translator/pkg/mathmask"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
)

// ErrNothingToTranslate 输入为空或只有空白
var ErrNothingToTranslate = errors.New("nothing to translate")

// Config 流水线配置
type Config struct {
	SourceLang string
	TargetLang string
	// Timeout 单次适配器调用的超时，0 表示不限
	Timeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		SourceLang: "ru",
		TargetLang: "en",
		Timeout:    2 * time.Minute,
	}
}

// Outcome 一次翻译的结果
type Outcome struct {
	RequestID string
	// Text 最终文本；适配器失败时为原文
	Text string
	// Translated 适配器是否成功返回
	Translated bool
	// Failure 适配器失败原因
	Failure *providers.Error
	// Masked 发给适配器的掩码文本
	Masked string
	// Placeholders 本次生成的占位符数量
	Placeholders int
	// MissingPlaceholders 译文中丢失的占位符编号
	MissingPlaceholders []int
	// UnknownTokens 译文中无法识别的占位符字面量
	UnknownTokens []string
	Model         string
	Duration      time.Duration
}

// Observer 接收每次适配器调用的结果。
// Translate 返回前同步调用，超时和 panic 也会上报。
type Observer interface {
	Observe(provider string, req *providers.Request, result providers.Result, latency time.Duration)
}

// Option 配置选项
type Option func(*Translator)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMasker 设置掩码器
func WithMasker(masker *mathmask.Masker) Option {
	return func(t *Translator) {
		if masker != nil {
			t.masker = masker
		}
	}
}

// WithObserver 设置调用结果观察者
func WithObserver(observer Observer) Option {
	return func(t *Translator) {
		if observer != nil {
			t.observers = append(t.observers, observer)
		}
	}
}

// Translator 数学安全的翻译器，无可变状态，可并发使用
type Translator struct {
	provider providers.Provider
	config   Config
	masker   *mathmask.Masker
	logger   *zap.Logger

	observers []Observer
}

// New 创建翻译器
func New(provider providers.Provider, config Config, opts ...Option) (*Translator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}

	t := &Translator{
		provider: provider,
		config:   config,
		masker:   mathmask.NewMasker(nil),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Translate 掩码、调用适配器、还原。
// 适配器失败不返回 error，Outcome.Text 原样保留输入。
func (t *Translator) Translate(ctx context.Context, text string) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToTranslate
	}

	start := time.Now()
	out := &Outcome{RequestID: uuid.NewString()}
	log := t.logger.With(zap.String("request_id", out.RequestID), zap.String("provider", t.provider.GetName()))

	masked := t.masker.Mask(text)
	out.Masked = masked.Text
	out.Placeholders = masked.Map.Len()
	log.Debug("text masked", zap.Int("placeholders", out.Placeholders), zap.Int("length", len(text)))

	req := &providers.Request{
		Text:       masked.Text,
		SourceLang: t.config.SourceLang,
		TargetLang: t.config.TargetLang,
	}
	callStart := time.Now()
	result := t.rewrite(ctx, req)
	latency := time.Since(callStart)
	for _, o := range t.observers {
		o.Observe(t.provider.GetName(), req, result, latency)
	}
	out.Duration = time.Since(start)

	if !result.OK() {
		out.Text = text
		out.Failure = result.Failure
		log.Warn("translation failed, returning original text",
			zap.String("code", result.Failure.Code),
			zap.Error(result.Failure),
			zap.Duration("duration", out.Duration))
		return out, nil
	}

	restoration := mathmask.Restore(result.Text, masked.Map)
	out.Text = restoration.Text
	out.Translated = true
	out.Model = result.Model
	out.MissingPlaceholders = restoration.Missing
	out.UnknownTokens = restoration.Unknown

	if !restoration.Complete() {
		log.Warn("translation dropped placeholders", zap.Ints("missing", restoration.Missing))
	}
	if len(restoration.Unknown) > 0 {
		log.Warn("translation contains unknown placeholders", zap.Strings("tokens", restoration.Unknown))
	}
	log.Info("translation completed",
		zap.String("model", out.Model),
		zap.Int("placeholders", out.Placeholders),
		zap.Duration("duration", out.Duration))

	return out, nil
}

// rewrite 在超时内调用适配器，把 panic 和超时都转换为失败结果
func (t *Translator) rewrite(ctx context.Context, req *providers.Request) providers.Result {
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	done := make(chan providers.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- providers.Failed(providers.NewError(providers.CodePanic, fmt.Sprintf("provider panicked: %v", r)))
			}
		}()
		done <- t.provider.Rewrite(ctx, req)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return providers.Failed(providers.WrapError(ctx.Err(), providers.CodeTimeout, "provider did not answer in time"))
	}
}
