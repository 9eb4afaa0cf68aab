package stats

import (
	"time"

	"github.com/nerdneilsfield/go-math-translator/pkg/mathmask"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
)

// Observe 记录一次适配器调用，统计请求中的占位符有多少在译文里保留下来
func (sm *StatsManager) Observe(provider string, req *providers.Request, result providers.Result, latency time.Duration) {
	record := RequestResult{
		Success:   result.OK(),
		Latency:   latency,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
	}
	if result.OK() {
		sent := uniquePlaceholders(req.Text)
		kept := uniquePlaceholders(result.Text)
		record.PlaceholdersSent = len(sent)
		for token := range sent {
			if kept[token] {
				record.PlaceholdersPreserved++
			}
		}
	} else {
		record.ErrorCode = result.Failure.Code
	}

	sm.RecordRequest(provider, record)
}

func uniquePlaceholders(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range mathmask.Tokens(text) {
		set[token] = true
	}
	return set
}
