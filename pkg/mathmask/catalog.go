package mathmask

import (
	"github.com/dlclark/regexp2"
)

// Class 数学片段的识别类别，数值越小优先级越高
type Class int

const (
	// ClassReservedToken 原文中已存在的占位符字面量
	ClassReservedToken Class = iota
	// ClassDelimited $...$、$$...$$、\(...\)、\[...\]
	ClassDelimited
	// ClassMatrix [[1,2],[3,4]]
	ClassMatrix
	// ClassDeterminant det(A)
	ClassDeterminant
	// ClassTranspose A^T、Bᵀ
	ClassTranspose
	// ClassScript x₁、y²、y^2
	ClassScript
	// ClassEquation x = 2y + 1
	ClassEquation
	// ClassArithmetic 2 + 3、2.5 * 4
	ClassArithmetic
	// ClassSymbol π、√、∑ ...
	ClassSymbol
	// ClassFunction sin(x)、f(x, y)
	ClassFunction
)

var classNames = [...]string{
	ClassReservedToken: "reserved-token",
	ClassDelimited:     "delimited",
	ClassMatrix:        "matrix",
	ClassDeterminant:   "determinant",
	ClassTranspose:     "transpose",
	ClassScript:        "script",
	ClassEquation:      "equation",
	ClassArithmetic:    "arithmetic",
	ClassSymbol:        "symbol",
	ClassFunction:      "function",
}

var classDescriptions = [...]string{
	ClassReservedToken: "literal [MATH_EXPR_n] already present in the source",
	ClassDelimited:     "$...$, $$...$$, \\(...\\), \\[...\\]",
	ClassMatrix:        "doubled square brackets such as [[1,2],[3,4]]",
	ClassDeterminant:   "det(...)",
	ClassTranspose:     "A^T, Bᵀ",
	ClassScript:        "x₁, y², y^2",
	ClassEquation:      "identifier = expression, e.g. x = 2y + 1",
	ClassArithmetic:    "number operator number, e.g. 2.5 * 4",
	ClassSymbol:        "standalone symbols such as π √ ∑ ∫ ≤ ≠ ∞",
	ClassFunction:      "function call such as sin(x) or f(x, y)",
}

// String 返回类别名称
func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// Description 返回类别的简短说明
func (c Class) Description() string {
	if c < 0 || int(c) >= len(classDescriptions) {
		return ""
	}
	return classDescriptions[c]
}

// Match 目录在某个偏移处识别出的数学片段，Start/End 为 rune 偏移（End 不含）
type Match struct {
	Class Class
	Start int
	End   int
	Text  string
}

// Len 返回片段的 rune 长度
func (m Match) Len() int {
	return m.End - m.Start
}

const (
	letter   = `A-Za-zА-Яа-яЁё`
	greek    = `α-ωΑ-Ω`
	scripts  = `₀-₉⁰¹²³⁴-⁹`
	symbols  = `π∞√∑∏∫∬∭∮≤≥≈≠≡∝∆Δ±∓∂∇∪∩∈∉⊂⊃⊆⊇∀∃∅×÷→⇒⇔`
	term     = `(?:[` + letter + `0-9()^]|\.[0-9])+`
	number   = `[0-9]+(?:\.[0-9]+)?`
	operator = `[+\-*/=<>^×÷xX]`
)

// 每条规则都以 \G 锚定，只在给定偏移处尝试匹配
var recognizerSources = [...]string{
	ClassReservedToken: `\[MATH_EXPR_[0-9]+\]`,
	// 块体不跨越同类开符，未闭合的开符最多扫描到下一个同类开符
	ClassDelimited: `\$\$(?:(?!\$\$)[\s\S])+?\$\$` +
		`|\$(?=\S)[^$\n]+?(?<=\S)\$(?![0-9])` +
		`|\\\[(?:(?!\\\[)[\s\S])+?\\\]` +
		`|\\\((?:(?!\\\()[\s\S])+?\\\)`,
	ClassMatrix:      `\[[ \t]*\[[^\[\]]*\](?:[ \t]*[,;]?[ \t]*\[[^\[\]]*\])*[ \t]*\]`,
	ClassDeterminant: `\bdet[ \t]*\([^()]+\)`,
	ClassTranspose:   `[` + letter + `](?:\^T|ᵀ)`,
	ClassScript:      `[` + letter + `](?:[` + scripts + `]+|\^[0-9]+)`,
	ClassEquation: `\b[` + letter + `]+(?:\([^()\n]*\))?(?:\^[0-9]+)?[ \t]*=[ \t]*` + term +
		`(?:[ \t]*[+\-*/^][ \t]*` + term + `)*`,
	ClassArithmetic: `\b` + number + `[ \t]*` + operator + `[ \t]*` + number + `\b`,
	ClassSymbol:     `[` + symbols + `]`,
	ClassFunction:   `\b[` + letter + `]+\([` + letter + greek + `0-9,+\-*/^.=\s]+\)`,
}

type recognizer struct {
	class Class
	re    *regexp2.Regexp
}

// Catalog 按优先级排列的识别规则集合，无状态，可并发使用
type Catalog struct {
	recognizers []recognizer
}

var defaultCatalog = newCatalog()

// DefaultCatalog 返回内置的数学识别目录
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func newCatalog() *Catalog {
	c := &Catalog{recognizers: make([]recognizer, 0, len(recognizerSources))}
	for i, src := range recognizerSources {
		c.recognizers = append(c.recognizers, recognizer{
			class: Class(i),
			re:    regexp2.MustCompile(`\G(?:`+src+`)`, regexp2.None),
		})
	}
	return c
}

// Classes 按优先级返回目录中的所有类别
func (c *Catalog) Classes() []Class {
	classes := make([]Class, 0, len(c.recognizers))
	for _, r := range c.recognizers {
		classes = append(classes, r.class)
	}
	return classes
}

// Longest 返回从 offset 开始的最长匹配；长度相同时优先级高的类别胜出
func (c *Catalog) Longest(text []rune, offset int) (Match, bool) {
	var best Match
	found := false
	if offset < 0 || offset >= len(text) {
		return best, false
	}

	for _, r := range c.recognizers {
		m, err := r.re.FindRunesMatchStartingAt(text, offset)
		if err != nil || m == nil || m.Index != offset || m.Length == 0 {
			continue
		}
		// 严格大于：等长时保留先出现（优先级更高）的类别
		if !found || m.Length > best.Len() {
			best = Match{
				Class: r.class,
				Start: offset,
				End:   offset + m.Length,
				Text:  m.String(),
			}
			found = true
		}
	}

	return best, found
}

// Classify 判断整个字符串是否恰好是单个数学片段
func (c *Catalog) Classify(s string) (Class, bool) {
	runes := []rune(s)
	m, ok := c.Longest(runes, 0)
	if !ok || m.End != len(runes) {
		return 0, false
	}
	return m.Class, true
}
