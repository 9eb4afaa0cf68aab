// Package mathmask 在文本送往外部翻译前用占位符替换数学片段，并在翻译后还原。
//
// 用法：
//
//	masked := mathmask.Mask(text)
//	translated := callTranslator(masked.Text)
//	final := mathmask.Unmask(translated, masked.Map)
//
// 掩码与还原都是纯函数，每次调用各自持有 PlaceholderMap，可在多个请求间并发使用。
package mathmask

import (
	"strings"
)

// Masked 掩码结果
type Masked struct {
	// Text 所有数学片段被替换为占位符后的文本
	Text string
	// Map 本次往返的占位符映射
	Map *PlaceholderMap
}

// Masker 基于识别目录的单遍扫描器
type Masker struct {
	catalog *Catalog
}

// NewMasker 创建扫描器，catalog 为 nil 时使用内置目录
func NewMasker(catalog *Catalog) *Masker {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Masker{catalog: catalog}
}

// Mask 使用内置目录掩码文本
func Mask(text string) *Masked {
	return NewMasker(nil).Mask(text)
}

// Mask 从左到右扫描文本，每个偏移处取最长匹配并替换为下一个编号的占位符。
// 已有的 [MATH_EXPR_n] 字面量同样会被掩码，因此掩码文本里的占位符都由本次调用生成。
func (mk *Masker) Mask(text string) *Masked {
	result := &Masked{Map: &PlaceholderMap{}}
	if text == "" {
		return result
	}

	runes := []rune(text)
	matches := mk.scan(runes)
	if len(matches) == 0 {
		result.Text = text
		return result
	}

	var sb strings.Builder
	sb.Grow(len(text) + len(matches)*len(tokenPrefix))

	// rune 偏移到字节偏移，按字节切片以保证非法 UTF-8 也能原样往返
	offsets := byteOffsets(text, len(runes))

	last := 0
	for _, m := range matches {
		m.Text = text[offsets[m.Start]:offsets[m.End]]
		sb.WriteString(text[offsets[last]:offsets[m.Start]])
		sb.WriteString(result.Map.add(m).Token)
		last = m.End
	}
	sb.WriteString(text[offsets[last]:])

	result.Text = sb.String()
	return result
}

// Matches 返回文本中所有被识别的片段，不生成占位符
func (mk *Masker) Matches(text string) []Match {
	return mk.scan([]rune(text))
}

// scan 返回互不重叠、按位置排序的匹配
func (mk *Masker) scan(runes []rune) []Match {
	var matches []Match
	for i := 0; i < len(runes); {
		m, ok := mk.catalog.Longest(runes, i)
		if !ok || m.End <= i {
			i++
			continue
		}
		matches = append(matches, m)
		i = m.End
	}
	return matches
}

// byteOffsets 返回每个 rune 起始的字节偏移，末尾追加 len(text)
func byteOffsets(text string, runeCount int) []int {
	offsets := make([]int, 0, runeCount+1)
	for bi := range text {
		offsets = append(offsets, bi)
	}
	return append(offsets, len(text))
}
