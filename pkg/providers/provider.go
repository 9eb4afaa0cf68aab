package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
		Headers:    make(map[string]string),
	}
}

// Provider 翻译适配器：接收掩码文本，返回改写后的文本或失败原因。
// 实现不得 panic，也不通过 error 传递失败，一律返回 Result。
type Provider interface {
	// Rewrite 执行一次阻塞的请求/响应交换
	Rewrite(ctx context.Context, req *Request) Result

	// GetName 获取提供商名称
	GetName() string
}

// Request 提供商请求
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
}

// Result 适配器调用结果，Failure 为 nil 表示成功
type Result struct {
	Text      string `json:"text"`
	Model     string `json:"model,omitempty"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
	Failure   *Error `json:"failure,omitempty"`
}

// OK 是否成功
func (r Result) OK() bool {
	return r.Failure == nil
}

// Success 构造成功结果；空白文本视为空响应
func Success(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Failed(NewError(CodeEmptyResponse, "provider returned empty text"))
	}
	return Result{Text: text}
}

// Failed 构造失败结果
func Failed(err *Error) Result {
	if err == nil {
		err = NewError(CodeUnknown, "unknown failure")
	}
	return Result{Failure: err}
}

// 错误代码
const (
	CodeNetwork           = "network"
	CodeTimeout           = "timeout"
	CodeCanceled          = "canceled"
	CodeRateLimit         = "rate_limit"
	CodeServerError       = "server_error"
	CodeAuth              = "auth"
	CodeBadRequest        = "bad_request"
	CodeEmptyResponse     = "empty_response"
	CodeMalformedResponse = "malformed_response"
	CodeBlocked           = "blocked"
	CodePanic             = "panic"
	CodeUnknown           = "unknown"
)

// Error 提供商错误
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeTimeout, CodeServerError, CodeNetwork:
		return true
	default:
		return false
	}
}

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装底层错误，按上下文状态推断代码
func WrapError(err error, code, message string) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, context.Canceled):
		code = CodeCanceled
	}

	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// CodeForStatus 将HTTP状态码映射为错误代码
func CodeForStatus(status int) string {
	switch {
	case status == 401 || status == 403:
		return CodeAuth
	case status == 429:
		return CodeRateLimit
	case status == 408:
		return CodeTimeout
	case status >= 500:
		return CodeServerError
	case status >= 400:
		return CodeBadRequest
	default:
		return CodeUnknown
	}
}
