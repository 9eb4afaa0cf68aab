// Package document 从常见文档格式中读取纯文本，并决定译文的输出文件名。
package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat 不支持的文件格式
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format 文档格式
type Format string

// 支持的格式
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
)

// 扩展名到格式的映射
var extensions = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".html":     FormatHTML,
	".htm":      FormatHTML,
}

// DetectFormat 根据扩展名判断格式
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// Document 读取结果
type Document struct {
	Path   string
	Format Format
	Text   string
}

// Read 读取文档的纯文本
func Read(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var text string
	switch format {
	case FormatText, FormatMarkdown:
		text, err = readPlain(path, decodeText)
	case FormatPDF:
		text, err = readPDF(path)
	case FormatDOCX:
		text, err = readDOCX(path)
	case FormatHTML:
		text, err = readHTML(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &Document{Path: path, Format: format, Text: text}, nil
}

// OutputName 返回译文文件名：translated_<name>，pdf/docx/html 输出为 .txt
func OutputName(path string, format Format) string {
	base := filepath.Base(path)
	switch format {
	case FormatPDF, FormatDOCX, FormatHTML:
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
	}
	return "translated_" + base
}

func readPlain(path string, decode func([]byte) string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decode(data), nil
}

// readPDF 逐页提取纯文本，页之间以换行分隔
func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageNum, err)
		}
		sb.WriteString(content)
		if pageNum < totalPages {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// readDOCX 读取 word/document.xml 中的段落，段落之间以换行连接
func readDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return "", fmt.Errorf("word/document.xml not found in archive")
}

func docxParagraphs(rd io.Reader) (string, error) {
	decoder := xml.NewDecoder(rd)

	var (
		paragraphs []string
		current    strings.Builder
		inRun      bool
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current.Reset()
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				// pPr 里的 tab 是制表位定义，不是文本
				if inRun {
					current.WriteByte('\t')
				}
			case "br":
				if inRun {
					current.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readHTML 提取 body 的可见文本
func readHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return strings.TrimSpace(collapseBlankLines(body.Text())), nil
}

// collapseBlankLines 去掉每行首尾空白并合并连续空行
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.Join(out, "\n")
}
