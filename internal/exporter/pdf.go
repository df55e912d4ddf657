package exporter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 5.5
	pdfFontFamily = "paper"
)

// renderPDF A4 纵向排版；配置了 UTF-8 字体时可正确显示中文，
// 否则回退到内置 Helvetica（非 cp1252 字符会被替换）
func (r *Renderer) renderPDF(p Paper, includeAnswers bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.pdfFontPath != "" {
		pdf.AddUTF8Font(pdfFontFamily, "", r.pdfFontPath)
		pdf.AddUTF8Font(pdfFontFamily, "B", r.pdfFontPath)
		family = pdfFontFamily
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("加载 PDF 字体失败: %w", err)
	}

	line := func(text, style string, size float64) {
		pdf.SetFont(family, style, size)
		pdf.MultiCell(0, pdfLineHeight, tr(text), "", "L", false)
	}

	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 8, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.Ln(pdfLineHeight)
	line(answerSheetLine, "", 11)
	pdf.Ln(pdfLineHeight)
	line(strings.Repeat("-", 90), "", 10)
	pdf.Ln(pdfLineHeight)

	for i, q := range p.Questions {
		line(stemLine(i+1, q), "B", 11)
		if showOptions(q) {
			for _, opt := range q.Options {
				line("   - "+opt, "", 10)
			}
		}
		pdf.Ln(pdfLineHeight)
	}

	if includeAnswers {
		pdf.AddPage()
		line(answerKeyTitle, "B", 14)
		pdf.Ln(pdfLineHeight)
		for i, q := range p.Questions {
			line(answerLine(i+1, q), "", 11)
			if q.Analysis != "" {
				line("   Analysis: "+q.Analysis, "", 10)
			}
			pdf.Ln(pdfLineHeight)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("生成 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}
