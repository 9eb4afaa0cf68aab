package raw

import (
	"context"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
)

// Provider Raw 提供商实现（跳过翻译，直接返回掩码文本），用于离线检查掩码往返
type Provider struct{}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的 Raw 提供商
func New() *Provider {
	return &Provider{}
}

// Rewrite 直接返回原文
func (p *Provider) Rewrite(ctx context.Context, req *providers.Request) providers.Result {
	if err := ctx.Err(); err != nil {
		return providers.Failed(providers.WrapError(err, providers.CodeCanceled, "request canceled"))
	}
	result := providers.Success(req.Text)
	result.Model = "raw"
	return result
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "raw"
}
