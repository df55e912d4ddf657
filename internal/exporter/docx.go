package exporter

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"exam-bank/backend/internal/model"
)

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	docxDocHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxDocFooter = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1020" w:right="1020" w:bottom="1020" w:left="1020" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr></w:body></w:document>`
)

// run 文本片段格式
type run struct {
	text   string
	bold   bool
	italic bool
	size   int // 半磅，0 表示默认
}

// docxBuilder 逐段拼装 word/document.xml
type docxBuilder struct {
	body strings.Builder
}

func (b *docxBuilder) paragraph(center bool, indentTwips int, runs ...run) {
	b.body.WriteString("<w:p>")
	if center || indentTwips > 0 {
		b.body.WriteString("<w:pPr>")
		if indentTwips > 0 {
			b.body.WriteString(`<w:ind w:left="`)
			b.body.WriteString(strconv.Itoa(indentTwips))
			b.body.WriteString(`"/>`)
		}
		if center {
			b.body.WriteString(`<w:jc w:val="center"/>`)
		}
		b.body.WriteString("</w:pPr>")
	}
	for _, r := range runs {
		b.writeRun(r)
	}
	b.body.WriteString("</w:p>")
}

func (b *docxBuilder) writeRun(r run) {
	b.body.WriteString("<w:r>")
	if r.bold || r.italic || r.size > 0 {
		b.body.WriteString("<w:rPr>")
		if r.bold {
			b.body.WriteString("<w:b/>")
		}
		if r.italic {
			b.body.WriteString("<w:i/>")
		}
		if r.size > 0 {
			b.body.WriteString(`<w:sz w:val="` + strconv.Itoa(r.size) + `"/>`)
		}
		b.body.WriteString("</w:rPr>")
	}
	// 文本中的换行转为 <w:br/>
	for i, line := range strings.Split(r.text, "\n") {
		if i > 0 {
			b.body.WriteString("<w:br/>")
		}
		b.body.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(&b.body, []byte(line))
		b.body.WriteString("</w:t>")
	}
	b.body.WriteString("</w:r>")
}

func (b *docxBuilder) blank() { b.body.WriteString("<w:p/>") }

func (b *docxBuilder) pageBreak() {
	b.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

// renderDOCX 生成最小化的 Office Open XML 文档
func renderDOCX(p Paper, includeAnswers bool) ([]byte, error) {
	b := &docxBuilder{}

	b.paragraph(true, 0, run{text: p.Title, bold: true, size: 36})
	b.paragraph(true, 0, run{text: answerSheetLine})
	b.paragraph(false, 0, run{text: strings.Repeat("-", 80)})

	for i, q := range p.Questions {
		b.paragraph(false, 0, run{text: stemLine(i+1, q), bold: true, size: 22})
		if showOptions(q) {
			for _, opt := range q.Options {
				b.paragraph(false, 720, run{text: "• " + opt})
			}
		}
		// 简答题预留作答空间
		if q.QType == model.QuestionTypeEssay {
			for j := 0; j < 5; j++ {
				b.blank()
			}
		}
		b.blank()
	}

	if includeAnswers {
		b.pageBreak()
		b.paragraph(false, 0, run{text: answerKeyTitle, bold: true, size: 28})
		for i, q := range p.Questions {
			runs := []run{{text: answerLine(i+1, q)}}
			if q.Analysis != "" {
				runs = append(runs, run{text: "\n   Analysis: " + q.Analysis, italic: true})
			}
			b.paragraph(false, 0, runs...)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", docxDocHeader + b.body.String() + docxDocFooter},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
