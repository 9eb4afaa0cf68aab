package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// ProviderStats 单个提供商的累计统计
type ProviderStats struct {
	ProviderName       string `json:"provider_name"`
	TotalRequests      int64  `json:"total_requests"`
	SuccessfulRequests int64  `json:"successful_requests"`
	FailedRequests     int64  `json:"failed_requests"`
	TotalTokensIn      int64  `json:"total_tokens_in"`
	TotalTokensOut     int64  `json:"total_tokens_out"`

	// 占位符保持情况
	PlaceholdersSent      int64 `json:"placeholders_sent"`
	PlaceholdersPreserved int64 `json:"placeholders_preserved"`

	TotalLatency time.Duration `json:"total_latency"`
	MaxLatency   time.Duration `json:"max_latency"`

	// 按错误代码统计
	ErrorTypes map[string]int64 `json:"error_types"`

	LastRequestTime time.Time `json:"last_request_time"`
}

// PreservationRate 占位符保持率（0-100）
func (ps *ProviderStats) PreservationRate() float64 {
	if ps.PlaceholdersSent == 0 {
		return 100
	}
	return float64(ps.PlaceholdersPreserved) / float64(ps.PlaceholdersSent) * 100
}

// SuccessRate 成功率（0-100）
func (ps *ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// AverageLatency 平均延迟
func (ps *ProviderStats) AverageLatency() time.Duration {
	if ps.TotalRequests == 0 {
		return 0
	}
	return ps.TotalLatency / time.Duration(ps.TotalRequests)
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success               bool
	Latency               time.Duration
	TokensIn              int
	TokensOut             int
	ErrorCode             string
	PlaceholdersSent      int
	PlaceholdersPreserved int
}

// StatsManager 统计管理器，可被多个请求并发写入
type StatsManager struct {
	stats  map[string]*ProviderStats
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStatsManager 创建统计管理器，dbPath 为空时不持久化
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider string, result RequestResult) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats, ok := sm.stats[provider]
	if !ok {
		stats = &ProviderStats{ProviderName: provider, ErrorTypes: make(map[string]int64)}
		sm.stats[provider] = stats
	}

	stats.LastRequestTime = time.Now()
	stats.TotalRequests++
	stats.TotalLatency += result.Latency
	if result.Latency > stats.MaxLatency {
		stats.MaxLatency = result.Latency
	}

	if !result.Success {
		stats.FailedRequests++
		stats.ErrorTypes[result.ErrorCode]++
		return
	}

	stats.SuccessfulRequests++
	stats.TotalTokensIn += int64(result.TokensIn)
	stats.TotalTokensOut += int64(result.TokensOut)
	stats.PlaceholdersSent += int64(result.PlaceholdersSent)
	stats.PlaceholdersPreserved += int64(result.PlaceholdersPreserved)
}

// GetStats 获取某个提供商统计的副本
func (sm *StatsManager) GetStats(provider string) (ProviderStats, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats, ok := sm.stats[provider]
	if !ok {
		return ProviderStats{}, false
	}
	return copyStats(stats), true
}

// GetAllStats 按名称排序返回所有统计的副本
func (sm *StatsManager) GetAllStats() []ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := make([]ProviderStats, 0, len(sm.stats))
	for _, s := range sm.stats {
		out = append(out, copyStats(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderName < out[j].ProviderName })
	return out
}

func copyStats(s *ProviderStats) ProviderStats {
	c := *s
	c.ErrorTypes = make(map[string]int64, len(s.ErrorTypes))
	for k, v := range s.ErrorTypes {
		c.ErrorTypes[k] = v
	}
	return c
}

// SaveToDB 保存统计数据到 JSON 文件
func (sm *StatsManager) SaveToDB() error {
	if sm.dbPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(sm.GetAllStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("stats saved", zap.String("path", sm.dbPath))
	return nil
}

// LoadFromDB 从 JSON 文件加载统计数据，文件不存在时从零开始
func (sm *StatsManager) LoadFromDB() error {
	if sm.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(sm.dbPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var loaded []ProviderStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i := range loaded {
		s := loaded[i]
		if s.ErrorTypes == nil {
			s.ErrorTypes = make(map[string]int64)
		}
		sm.stats[s.ProviderName] = &s
	}

	sm.logger.Debug("stats loaded", zap.String("path", sm.dbPath), zap.Int("providers", len(loaded)))
	return nil
}

// RenderTable 以表格形式输出统计
func (sm *StatsManager) RenderTable(w io.Writer) {
	all := sm.GetAllStats()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Provider", "Requests", "Success%", "Placeholders kept%", "Avg latency", "Tokens in/out"})
	for _, s := range all {
		t.AppendRow(table.Row{
			s.ProviderName,
			s.TotalRequests,
			fmt.Sprintf("%.1f", s.SuccessRate()),
			fmt.Sprintf("%.1f", s.PreservationRate()),
			s.AverageLatency().Round(time.Millisecond),
			fmt.Sprintf("%d/%d", s.TotalTokensIn, s.TotalTokensOut),
		})
	}
	t.Render()
}
