package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ── 文件解析错误 ──

var (
	ErrUnsupportedFile = errors.New("不支持的文件格式，请上传 txt/md/doc/docx/pdf")
	ErrFileParse       = errors.New("文件解析失败")
)

// FileParser 上传文件 → 纯文本，供 AI 出题使用
type FileParser interface {
	Parse(filename string, r io.Reader) (string, error)
}

type fileParser struct{}

// NewFileParser 创建 FileParser 实例
func NewFileParser() FileParser {
	return fileParser{}
}

func (fileParser) Parse(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".doc", ".docx", ".pdf":
	default:
		return "", ErrUnsupportedFile
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileParse, err)
	}

	var text string
	switch ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			err = errors.New("文件不是有效的 UTF-8 编码")
		}
		text = string(data)
	case ".doc", ".docx":
		text, err = parseDocx(data)
	case ".pdf":
		text, err = parsePDF(data)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileParse, err)
	}
	return text, nil
}

// ────────────────────── DOCX ──────────────────────

// parseDocx 读取 word/document.xml，按段落 (<w:p>) 输出，段内文本 (<w:t>) 拼接
// 旧版二进制 .doc 不是 zip 包，会在打开时报错
func parseDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("缺少 word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// ────────────────────── PDF ──────────────────────

func parsePDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("第 %d 页: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}
