package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// 题目导入，预览 (ParseImport) 与提交 (Import)
// ═══════════════════════════════════════════════════════════
//
// 支持 .csv（UTF-8，失败回退 GBK，容忍 BOM）与 .xlsx（首个工作表）。
// 表头中英文均可，列序任意。

// 导入列
const (
	colContent    = "content"
	colQType      = "q_type"
	colDifficulty = "difficulty"
	colOptions    = "options"
	colAnswer     = "answer"
	colTags       = "tags"
	colAnalysis   = "analysis"
	colSourceDoc  = "source_doc"
)

// importTypeMap 中文题型 → 题型
var importTypeMap = map[string]string{
	"单选": model.QuestionTypeSingle,
	"多选": model.QuestionTypeMulti,
	"判断": model.QuestionTypeJudge,
	"简答": model.QuestionTypeEssay,
}

const defaultImportDifficulty = 3

// importRow 一行原始单元格 + 行号（从 1 开始，不含表头）
type importRow struct {
	index int
	cells map[string]string
}

func (r importRow) get(col string) string {
	return strings.TrimSpace(r.cells[col])
}

// ────────────────────── ParseImport ──────────────────────

// ParseImport 与 Import 走同一套解析和校验，预览为 valid 的行提交时不会因校验失败
// 重复检测一次性按指纹批量查询；文件内重复的题干，首行之后标记为 duplicate
func (s *questionService) ParseImport(ctx context.Context, filename string, data []byte) (*dto.ImportPreviewResponse, error) {
	rows, err := s.readImportFile(filename, data)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportPreviewResponse{
		Filename: filename,
		Total:    len(rows),
		Items:    make([]dto.ImportPreviewRow, 0, len(rows)),
	}

	parsed := make([]dto.ImportQuestionData, len(rows))
	hashes := make([]string, 0, len(rows))
	for i, row := range rows {
		parsed[i] = mapImportRow(row)
		if parsed[i].Content != "" {
			hashes = append(hashes, model.ContentFingerprint(parsed[i].Content))
		}
	}

	existing, lookupErr := s.repo.Question.FindByContentHashes(ctx, hashes)
	if lookupErr != nil {
		s.logger.Error("导入预览查重失败", zap.String("filename", filename), zap.Error(lookupErr))
	}
	existingIDs := make(map[string]uint, len(existing))
	for _, q := range existing {
		existingIDs[q.ContentHash] = q.ID
	}

	seenInFile := make(map[string]bool, len(hashes))
	for i, row := range rows {
		item := dto.ImportPreviewRow{
			RowIndex: row.index,
			Status:   dto.ImportRowValid,
			Errors:   []string{},
			Data:     parsed[i],
		}

		if item.Data.Content == "" {
			item.Status = dto.ImportRowInvalid
			item.Errors = append(item.Errors, "Content is missing")
			resp.Items = append(resp.Items, item)
			continue
		}
		if err := validateImported(importedQuestion(item.Data)); err != nil {
			item.Status = dto.ImportRowInvalid
			item.Errors = append(item.Errors, err.Error())
			resp.Items = append(resp.Items, item)
			continue
		}

		hash := model.ContentFingerprint(item.Data.Content)
		switch id, found := existingIDs[hash]; {
		case lookupErr != nil:
			item.Status = dto.ImportRowError
			item.Errors = append(item.Errors, lookupErr.Error())
		case found:
			item.Status = dto.ImportRowDuplicate
			item.Errors = append(item.Errors, "Duplicate question exists")
			item.ExistingID = &id
		case seenInFile[hash]:
			item.Status = dto.ImportRowDuplicate
			item.Errors = append(item.Errors, "Duplicate content in file")
		}
		seenInFile[hash] = true
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// ────────────────────── Import ──────────────────────

// Import 逐行独立写入：无题干的行跳过，重复行计为失败
func (s *questionService) Import(ctx context.Context, filename string, data []byte, operator string) (*dto.ImportResultResponse, error) {
	rows, err := s.readImportFile(filename, data)
	if err != nil {
		return nil, err
	}

	var (
		success int
		failed  int
		errs    []string
		ids     []uint
	)
	for _, row := range rows {
		d := mapImportRow(row)
		if d.Content == "" {
			continue
		}

		q := importedQuestion(d)
		err := validateImported(q)
		if err == nil {
			err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
				return s.insert(ctx, tx, q)
			})
		}
		if err != nil {
			failed++
			if errors.Is(err, ErrDuplicateQuestion) {
				errs = append(errs, fmt.Sprintf("Row %d: Duplicate content", row.index))
			} else {
				errs = append(errs, fmt.Sprintf("Row %d: %s", row.index, err.Error()))
			}
			continue
		}
		success++
		ids = append(ids, q.ID)
	}

	writeAudit(ctx, s.repo, s.logger, auditEntry{
		operator:   operator,
		action:     "batch_import",
		targetType: model.TargetQuestion,
		details:    map[string]interface{}{"filename": filename, "success": success, "failed": failed},
	}, nil)
	s.publish(ctx, "import", ids)

	maxErrors := s.importCfg.MaxErrors
	if maxErrors <= 0 {
		maxErrors = 50
	}
	if len(errs) > maxErrors {
		errs = errs[:maxErrors]
	}
	if errs == nil {
		errs = []string{}
	}

	s.logger.Info("题目导入完成",
		zap.String("filename", filename),
		zap.Int("success", success),
		zap.Int("failed", failed),
	)
	return &dto.ImportResultResponse{Success: success, Failed: failed, Errors: errs}, nil
}

// importedQuestion 导入行 → 待写入的草稿题目
func importedQuestion(d dto.ImportQuestionData) *model.Question {
	q := &model.Question{
		Content:     d.Content,
		ContentHash: model.ContentFingerprint(d.Content),
		QType:       d.QType,
		Options:     d.Options,
		Answer:      d.Answer,
		Difficulty:  d.Difficulty,
		Tags:        d.Tags,
		Score:       defaultScore,
		SourceDoc:   d.SourceDoc,
		Status:      model.StatusDraft,
	}
	if d.Analysis != nil {
		q.Analysis = *d.Analysis
	}
	return q
}

// validateImported 导入行的题型与难度校验
func validateImported(q *model.Question) error {
	if !model.IsValidQuestionType(q.QType) {
		return fmt.Errorf("%w: %s", ErrInvalidQuestionType, q.QType)
	}
	if q.Difficulty < 1 || q.Difficulty > 5 {
		return ErrInvalidDifficulty
	}
	return nil
}

// ── 行映射 ──

// mapImportRow 将单元格映射为题目字段，缺省值：题型 single、难度 3
func mapImportRow(row importRow) dto.ImportQuestionData {
	d := dto.ImportQuestionData{
		Content: row.get(colContent),
		QType:   row.get(colQType),
		Answer:  row.get(colAnswer),
		Options: []string{},
		Tags:    []string{},
	}

	if d.QType == "" {
		d.QType = model.QuestionTypeSingle
	}
	if mapped, ok := importTypeMap[d.QType]; ok {
		d.QType = mapped
	}

	d.Difficulty = defaultImportDifficulty
	if raw := row.get(colDifficulty); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			d.Difficulty = n
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			d.Difficulty = int(f)
		}
	}

	for _, o := range strings.Split(row.cells[colOptions], "\n") {
		if o = strings.TrimSpace(o); o != "" {
			d.Options = append(d.Options, o)
		}
	}
	for _, t := range strings.Split(row.cells[colTags], ",") {
		if t = strings.TrimSpace(t); t != "" {
			d.Tags = append(d.Tags, t)
		}
	}

	if v := row.get(colAnalysis); v != "" {
		d.Analysis = &v
	}
	if v := row.get(colSourceDoc); v != "" {
		d.SourceDoc = &v
	}
	return d
}

// ── 文件读取 ──

func (s *questionService) readImportFile(filename string, data []byte) ([]importRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx":
		records, err = readXLSX(data)
	default:
		return nil, ErrUnsupportedImport
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportParseFailed, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := parseQuestionHeader(records[0])
	rows := make([]importRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		cells := make(map[string]string, len(header))
		for col, idx := range header {
			if idx < len(rec) {
				cells[col] = rec[idx]
			}
		}
		rows = append(rows, importRow{index: i + 1, cells: cells})
	}

	if s.importCfg.MaxRows > 0 && len(rows) > s.importCfg.MaxRows {
		return nil, fmt.Errorf("%w（%d）", ErrImportTooManyRows, s.importCfg.MaxRows)
	}
	return rows, nil
}

// parseQuestionHeader 解析表头，返回列 → 列索引（未出现的列不在映射中）
func parseQuestionHeader(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		var col string
		switch lower {
		case "content", "题干":
			col = colContent
		case "q_type", "题型":
			col = colQType
		case "difficulty", "难度":
			col = colDifficulty
		case "options", "选项":
			col = colOptions
		case "answer", "答案":
			col = colAnswer
		case "tags", "标签":
			col = colTags
		case "analysis", "解析":
			col = colAnalysis
		case "source_doc", "来源":
			col = colSourceDoc
		default:
			continue
		}
		// 英文列与中文列同时存在时保留先出现者
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	return idx
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV UTF-8 优先，非法 UTF-8 时按 GBK 解码
func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetRows(f.GetSheetName(0))
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
