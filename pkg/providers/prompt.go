package providers

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// PlaceholderExample 提示词中展示的占位符样例
const PlaceholderExample = "[MATH_EXPR_0]"

// LanguageName 将语言标签转换为英文名称，无法解析时原样返回
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// SystemPrompt 返回翻译指令，说明占位符不可改动
func SystemPrompt(req *Request) string {
	target := LanguageName(req.TargetLang)
	if target == "" {
		target = "English"
	}

	var sb strings.Builder
	sb.WriteString("You are a professional translator. ")
	fmt.Fprintf(&sb, "Translate the user's text to %s", target)
	if source := LanguageName(req.SourceLang); source != "" {
		fmt.Fprintf(&sb, " from %s", source)
	}
	sb.WriteString(". Reply with the translation only.\n\n")

	pattern := regexp.QuoteMeta("[MATH_EXPR_") + `\d+` + regexp.QuoteMeta("]")
	fmt.Fprintf(&sb, `IMPORTANT: Preserve Placeholders
- Do not translate or modify any text that matches the pattern: %s
- These placeholders stand for mathematical expressions.
- Keep every placeholder exactly once, in the position that fits the translated sentence.
- Example: %s should remain unchanged.`, pattern, PlaceholderExample)

	return sb.String()
}

// UserPrompt 返回携带掩码文本的用户消息
func UserPrompt(req *Request) string {
	return "Just translate the sentences around the placeholders.\n\nInput:\n" + req.Text
}

// SinglePrompt 合并系统指令与用户消息，供不区分角色的接口使用
func SinglePrompt(req *Request) string {
	return SystemPrompt(req) + "\n\n" + UserPrompt(req)
}
