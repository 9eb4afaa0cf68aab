package mathmask

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	tokenPrefix = "[MATH_EXPR_"
	tokenSuffix = "]"
)

// Token 返回给定编号的占位符文本
func Token(index int) string {
	return tokenPrefix + strconv.Itoa(index) + tokenSuffix
}

// ParseToken 解析形如 [MATH_EXPR_n] 的占位符，返回编号。
// 只接受 Token 生成的规范写法，[MATH_EXPR_01] 这类带前导零的不算。
func ParseToken(token string) (int, bool) {
	if !strings.HasPrefix(token, tokenPrefix) || !strings.HasSuffix(token, tokenSuffix) {
		return 0, false
	}
	digits := token[len(tokenPrefix) : len(token)-len(tokenSuffix)]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || Token(n) != token {
		return 0, false
	}
	return n, true
}

// Placeholder 一个被保护的数学片段
type Placeholder struct {
	Index    int
	Token    string
	Original string
	Class    Class
	// Start/End 为原文中的 rune 偏移
	Start int
	End   int
}

// PlaceholderMap 单次掩码/还原往返中占位符到原文的有序映射。
// 第 i 个元素的 Index 恒为 i。
type PlaceholderMap struct {
	entries []Placeholder
}

func (pm *PlaceholderMap) add(m Match) Placeholder {
	p := Placeholder{
		Index:    len(pm.entries),
		Token:    Token(len(pm.entries)),
		Original: m.Text,
		Class:    m.Class,
		Start:    m.Start,
		End:      m.End,
	}
	pm.entries = append(pm.entries, p)
	return p
}

// Len 返回占位符数量
func (pm *PlaceholderMap) Len() int {
	if pm == nil {
		return 0
	}
	return len(pm.entries)
}

// Entries 按编号升序返回所有占位符的副本
func (pm *PlaceholderMap) Entries() []Placeholder {
	if pm == nil {
		return nil
	}
	out := make([]Placeholder, len(pm.entries))
	copy(out, pm.entries)
	return out
}

// Lookup 按编号查找占位符
func (pm *PlaceholderMap) Lookup(index int) (Placeholder, bool) {
	if pm == nil || index < 0 || index >= len(pm.entries) {
		return Placeholder{}, false
	}
	return pm.entries[index], true
}

// String 便于调试输出
func (pm *PlaceholderMap) String() string {
	var sb strings.Builder
	for _, p := range pm.Entries() {
		fmt.Fprintf(&sb, "%s => %q (%s)\n", p.Token, p.Original, p.Class)
	}
	return sb.String()
}
