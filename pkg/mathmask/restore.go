package mathmask

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var tokenPattern = regexp2.MustCompile(`\[MATH_EXPR_[0-9]+\]`, regexp2.None)

// Restoration 还原结果
type Restoration struct {
	// Text 还原后的文本
	Text string
	// Restored 至少被替换过一次的编号，升序
	Restored []int
	// Missing 映射中存在但译文里找不到的编号，升序
	Missing []int
	// Unknown 形如占位符但编号不在映射范围内的字面量，按出现顺序
	Unknown []string
}

// Complete 所有占位符是否都被还原
func (r *Restoration) Complete() bool {
	return len(r.Missing) == 0
}

// Unmask 将译文中的占位符替换回原始数学片段
func Unmask(text string, pm *PlaceholderMap) string {
	return Restore(text, pm).Text
}

// Restore 单遍扫描译文，把每个已知占位符替换为原文。
// 替换进去的内容不会被再次扫描；未知编号的占位符原样保留。
// 译文丢失的占位符不会报错，只在 Missing 中列出。
//
// 原文本身含有占位符字面量时，还原结果里会重新出现占位符，
// 再次调用 Restore 会继续替换它们，此时两次还原的结果不同。
func Restore(text string, pm *PlaceholderMap) *Restoration {
	res := &Restoration{Text: text}

	seen := make([]bool, pm.Len())
	if strings.Contains(text, tokenPrefix) {
		res.Text = replaceTokens(text, pm, seen, res)
	}

	// 按编号升序汇总
	for i, ok := range seen {
		if ok {
			res.Restored = append(res.Restored, i)
		} else {
			res.Missing = append(res.Missing, i)
		}
	}

	return res
}

func replaceTokens(text string, pm *PlaceholderMap, seen []bool, res *Restoration) string {
	runes := []rune(text)
	m, err := tokenPattern.FindRunesMatch(runes)
	if err != nil || m == nil {
		return text
	}

	offsets := byteOffsets(text, len(runes))

	var sb strings.Builder
	sb.Grow(len(text))

	last := 0
	for err == nil && m != nil {
		start, end := offsets[m.Index], offsets[m.Index+m.Length]
		token := text[start:end]
		sb.WriteString(text[last:start])

		index, ok := ParseToken(token)
		if p, found := pm.Lookup(index); ok && found {
			sb.WriteString(p.Original)
			seen[index] = true
		} else {
			sb.WriteString(token)
			res.Unknown = append(res.Unknown, token)
		}

		last = end
		m, err = tokenPattern.FindNextMatch(m)
	}
	sb.WriteString(text[last:])

	return sb.String()
}

// Tokens 返回文本中所有形如占位符的字面量，按出现顺序
func Tokens(text string) []string {
	if !strings.Contains(text, tokenPrefix) {
		return nil
	}

	runes := []rune(text)
	offsets := byteOffsets(text, len(runes))

	var tokens []string
	m, err := tokenPattern.FindRunesMatch(runes)
	for err == nil && m != nil {
		tokens = append(tokens, text[offsets[m.Index]:offsets[m.Index+m.Length]])
		m, err = tokenPattern.FindNextMatch(m)
	}
	return tokens
}
