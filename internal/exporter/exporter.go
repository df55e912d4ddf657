// Package exporter 将试卷快照渲染为可下载文件（docx / pdf / txt）。
package exporter

import (
	"errors"
	"fmt"
	"strings"

	"exam-bank/backend/internal/model"
)

// ErrUnsupportedFormat 不支持的导出格式
var ErrUnsupportedFormat = errors.New("不支持的导出格式，请使用 docx/pdf/txt")

// Format 导出格式
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
)

const (
	answerSheetLine = "Name: _______________  Score: _______"
	answerKeyTitle  = "Answer Key"
	defaultTitle    = "Exam Paper"
)

// ParseFormat 解析导出格式（大小写不敏感）
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOCX, FormatPDF, FormatTXT:
		return f, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ContentType 返回 HTTP 响应使用的 MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename 试卷导出文件名
func Filename(paperID uint, f Format) string {
	return fmt.Sprintf("exam_paper_%d.%s", paperID, f)
}

// Paper 待渲染的试卷
type Paper struct {
	Title     string
	Questions []model.QuestionSnapshot
}

// Renderer 试卷渲染器
type Renderer struct {
	pdfFontPath string
}

// Option 渲染器配置项
type Option func(*Renderer)

// WithPDFFont 指定 PDF 使用的 UTF-8 TrueType 字体文件（中文内容需要）
func WithPDFFont(path string) Option {
	return func(r *Renderer) { r.pdfFontPath = path }
}

// NewRenderer 创建渲染器
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render 渲染试卷，includeAnswers 为 true 时附带答案页
func (r *Renderer) Render(f Format, p Paper, includeAnswers bool) ([]byte, error) {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = defaultTitle
	}
	switch f {
	case FormatTXT:
		return renderTXT(p, includeAnswers), nil
	case FormatDOCX:
		return renderDOCX(p, includeAnswers)
	case FormatPDF:
		return r.renderPDF(p, includeAnswers)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ── 公共片段 ──

func stemLine(idx int, q model.QuestionSnapshot) string {
	qType := q.QType
	if qType == "" {
		qType = "Unknown"
	}
	return fmt.Sprintf("%d. [%s] %s", idx, qType, q.Content)
}

func answerLine(idx int, q model.QuestionSnapshot) string {
	ans := q.Answer
	if ans == "" {
		ans = "N/A"
	}
	return fmt.Sprintf("%d. %s", idx, ans)
}

func showOptions(q model.QuestionSnapshot) bool {
	return model.IsChoiceType(q.QType) && len(q.Options) > 0
}
