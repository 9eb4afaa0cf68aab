package document

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText 把纯文本文件转换为 UTF-8。
// 依次尝试 UTF-8、带 BOM 的 UTF-16，再按字母比例在 Windows-1251 与 Windows-1252 之间选择。
func decodeText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	if len(data) >= 2 {
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			if s, ok := decodeWith(xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM), data[2:]); ok {
				return s
			}
		case data[0] == 0xFE && data[1] == 0xFF:
			if s, ok := decodeWith(xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM), data[2:]); ok {
				return s
			}
		}
	}

	if s, ok := decodeWith(charmap.Windows1251, data); ok && mostlyCyrillic(s) {
		return s
	}
	if s, ok := decodeWith(charmap.Windows1252, data); ok {
		return s
	}

	// 如果都失败了，返回原始数据
	return string(data)
}

func decodeWith(enc encoding.Encoding, data []byte) (string, bool) {
	res, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(res) {
		return "", false
	}
	return string(res), true
}

// mostlyCyrillic 字母中西里尔字母是否占多数
func mostlyCyrillic(s string) bool {
	var cyrillic, other int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		} else {
			other++
		}
	}
	return cyrillic > other
}
