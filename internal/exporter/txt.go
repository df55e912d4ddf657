package exporter

import "strings"

// renderTXT 纯文本试卷，行以 \n 连接
func renderTXT(p Paper, includeAnswers bool) []byte {
	rule := strings.Repeat("-", 60)
	lines := []string{p.Title, "", answerSheetLine, "", rule, ""}

	for i, q := range p.Questions {
		lines = append(lines, stemLine(i+1, q))
		if showOptions(q) {
			for _, opt := range q.Options {
				lines = append(lines, "   - "+opt)
			}
		}
		lines = append(lines, "")
	}

	if includeAnswers {
		lines = append(lines, "", answerKeyTitle, rule)
		for i, q := range p.Questions {
			lines = append(lines, answerLine(i+1, q))
			if q.Analysis != "" {
				lines = append(lines, "   Analysis: "+q.Analysis)
			}
		}
	}

	return []byte(strings.Join(lines, "\n"))
}
