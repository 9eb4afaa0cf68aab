package retry

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数（不含首次请求）
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`

	// 网络错误的初始延迟（通常更短）
	NetworkInitialDelay time.Duration `json:"network_initial_delay"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          3,
		InitialDelay:        1 * time.Second,
		MaxDelay:            30 * time.Second,
		BackoffFactor:       2.0,
		NetworkInitialDelay: 100 * time.Millisecond,
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone          ErrorType = iota
	ErrorTypeNetwork                 // 网络瞬时错误
	ErrorTypeRetryableHTTP           // 429
	ErrorTypeClientError             // 客户端错误（4xx）
	ErrorTypeServerError             // 服务端错误（5xx）
	ErrorTypePermanent               // 永久性错误
)

// NetworkRetrier 网络重试器
type NetworkRetrier struct {
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewNetworkRetrier 创建网络重试器
func NewNetworkRetrier(config RetryConfig) *NetworkRetrier {
	return &NetworkRetrier{
		config: config,
		sleep:  sleepContext,
	}
}

// RetryableFunc 可重试的函数类型
type RetryableFunc func() (*http.Response, error)

// ExecuteWithRetry 执行带重试的函数。
// 重试耗尽后返回最后一次的响应（调用方负责关闭 Body）或错误。
func (nr *NetworkRetrier) ExecuteWithRetry(ctx context.Context, fn RetryableFunc) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := fn()
		errorType := nr.classifyError(err, resp)
		if errorType == ErrorTypeNone {
			return resp, nil
		}

		if attempt >= nr.config.MaxRetries || !isRetryable(errorType) {
			return resp, err
		}

		delay := nr.calculateDelay(errorType == ErrorTypeNetwork, attempt)
		if resp != nil {
			if ra := retryAfter(resp); ra > 0 {
				delay = ra
			}
			drain(resp)
		}

		if err := nr.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// classifyError 分类错误
func (nr *NetworkRetrier) classifyError(err error, resp *http.Response) ErrorType {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrorTypePermanent
		}
		if IsNetworkError(err) {
			return ErrorTypeNetwork
		}
		return ErrorTypePermanent
	}

	if resp == nil {
		return ErrorTypePermanent
	}

	switch {
	case resp.StatusCode >= 500:
		return ErrorTypeServerError
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRetryableHTTP
	case resp.StatusCode >= 400:
		return ErrorTypeClientError
	}

	return ErrorTypeNone
}

func isRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeServerError, ErrorTypeRetryableHTTP:
		return true
	default:
		return false
	}
}

// IsNetworkError 判断是否为网络瞬时错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// calculateDelay 计算延迟时间
func (nr *NetworkRetrier) calculateDelay(isNetworkError bool, attempt int) time.Duration {
	delay := nr.config.InitialDelay
	if isNetworkError && nr.config.NetworkInitialDelay > 0 {
		delay = nr.config.NetworkInitialDelay
	}

	backoffFactor := nr.config.BackoffFactor
	if backoffFactor <= 1.0 {
		backoffFactor = 2.0
	}
	delay = time.Duration(float64(delay) * math.Pow(backoffFactor, float64(attempt)))

	if nr.config.MaxDelay > 0 && delay > nr.config.MaxDelay {
		delay = nr.config.MaxDelay
	}

	return delay
}

// retryAfter 解析 Retry-After 头（秒）
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WrapHTTPClient 包装HTTP客户端，添加重试功能
func (nr *NetworkRetrier) WrapHTTPClient(client *http.Client) *RetryableHTTPClient {
	return &RetryableHTTPClient{
		client:  client,
		retrier: nr,
	}
}

// RetryableHTTPClient 可重试的HTTP客户端
type RetryableHTTPClient struct {
	client  *http.Client
	retrier *NetworkRetrier
}

// Do 执行HTTP请求（带重试），每次尝试通过 GetBody 重新获取请求体
func (rc *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	first := true
	return rc.retrier.ExecuteWithRetry(req.Context(), func() (*http.Response, error) {
		clonedReq := req.Clone(req.Context())
		if !first && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clonedReq.Body = body
		}
		first = false
		return rc.client.Do(clonedReq)
	})
}
