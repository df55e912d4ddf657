package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Export，按条件导出题目为 CSV / XLSX
// ═══════════════════════════════════════════════════════════
//
// 列：ID, Type, Content, Options, Answer, Difficulty, Tags, Status
//   - ID 优先取自定义编号
//   - 选项以换行连接（与导入格式一致），标签以逗号连接
//   - CSV 带 UTF-8 BOM，便于 Excel 直接打开

var exportHeader = []string{"ID", "Type", "Content", "Options", "Answer", "Difficulty", "Tags", "Status"}

const (
	exportFormatCSV  = "csv"
	exportFormatXLSX = "xlsx"
)

func (s *questionService) Export(ctx context.Context, req *dto.ExportQuestionsRequest, operator string) (*dto.ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV && format != exportFormatXLSX {
		return nil, ErrUnsupportedExportFmt
	}

	f := repository.QuestionFilter{
		QType:      req.QType,
		Difficulty: req.Difficulty,
		Tag:        req.Tag,
		Status:     req.Status,
	}
	questions, err := s.repo.Question.ListAll(ctx, f, s.exportCfg.MaxRows)
	if err != nil {
		s.logger.Error("查询导出题目失败", zap.Error(err))
		return nil, err
	}

	rows := make([][]string, 0, len(questions))
	for i := range questions {
		rows = append(rows, exportRow(&questions[i]))
	}

	var file *dto.ExportFile
	if format == exportFormatXLSX {
		file, err = writeQuestionsXLSX(rows)
	} else {
		file, err = writeQuestionsCSV(rows)
	}
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.String("format", format), zap.Error(err))
		return nil, err
	}

	writeAudit(ctx, s.repo, s.logger, auditEntry{
		operator:   operator,
		action:     "export",
		targetType: model.TargetQuestion,
		details: map[string]interface{}{
			"count":  len(questions),
			"format": format,
			"filters": map[string]interface{}{
				"q_type":     req.QType,
				"tag":        req.Tag,
				"difficulty": req.Difficulty,
				"status":     req.Status,
			},
		},
	}, nil)

	return file, nil
}

func exportRow(q *model.Question) []string {
	return []string{
		q.DisplayID(),
		q.QType,
		q.Content,
		strings.Join(q.Options, "\n"),
		q.Answer,
		strconv.Itoa(q.Difficulty),
		strings.Join(q.Tags, ","),
		q.Status,
	}
}

func writeQuestionsCSV(rows [][]string) (*dto.ExportFile, error) {
	buf := new(bytes.Buffer)
	buf.Write(utf8BOM)

	w := csv.NewWriter(buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}

	return &dto.ExportFile{
		Filename:    "questions_export.csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

func writeQuestionsXLSX(rows [][]string) (*dto.ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "题目"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "C", "C", 60)
	f.SetColWidth(sheet, "D", "D", 30)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, h := range exportHeader {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	f.SetCellStyle(sheet, "A1", cellName(len(exportHeader)-1, 1), headerStyle)

	for r, row := range rows {
		for c, v := range row {
			f.SetCellValue(sheet, cellName(c, r+2), v)
		}
	}
	if len(rows) > 0 {
		f.SetCellStyle(sheet, "C2", cellName(3, len(rows)+1), wrapStyle)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}

	return &dto.ExportFile{
		Filename:    "questions_export.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

// cellName 0 起始列号 + 1 起始行号 → A1 形式
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
