package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	pkgerrors "exam-bank/backend/pkg/errors"
)

// ── 测试用 Repository 聚合 ──

type testRepos struct {
	question *mockQuestionRepo
	tag      *mockTagRepo
	rule     *mockExamRuleRepo
	paper    *mockExamPaperRepo
	log      *mockOperationLogRepo
	seq      *mockIDSequenceRepo
}

func newTestRepos() (*repository.Repository, *testRepos) {
	m := &testRepos{
		question: newMockQuestionRepo(),
		tag:      newMockTagRepo(),
		rule:     newMockExamRuleRepo(),
		paper:    newMockExamPaperRepo(),
		log:      &mockOperationLogRepo{},
		seq:      &mockIDSequenceRepo{values: make(map[string]int64)},
	}
	repo := &repository.Repository{
		Question:     m.question,
		Tag:          m.tag,
		ExamRule:     m.rule,
		ExamPaper:    m.paper,
		OperationLog: m.log,
		IDSequence:   m.seq,
	}
	return repo, m
}

// ── Mock QuestionRepository ──

type mockQuestionRepo struct {
	questions map[uint]*model.Question
	nextID    uint
	listErr   error
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{questions: make(map[uint]*model.Question), nextID: 1}
}

// seed 直接写入题目（绕过业务校验），返回分配的 ID
func (m *mockQuestionRepo) seed(q model.Question) uint {
	if q.ContentHash == "" {
		q.ContentHash = model.ContentFingerprint(q.Content)
	}
	if q.Status == "" {
		q.Status = model.StatusPublished
	}
	if q.ID == 0 {
		q.ID = m.nextID
	}
	if q.ID >= m.nextID {
		m.nextID = q.ID + 1
	}
	m.questions[q.ID] = &q
	return q.ID
}

func (m *mockQuestionRepo) Create(_ context.Context, q *model.Question) error {
	for _, existing := range m.questions {
		if existing.ContentHash == q.ContentHash {
			return gorm.ErrDuplicatedKey
		}
	}
	q.ID = m.nextID
	m.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	cp := *q
	m.questions[q.ID] = &cp
	return nil
}

func (m *mockQuestionRepo) GetByID(_ context.Context, id uint) (*model.Question, error) {
	if q, ok := m.questions[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) GetByContentHash(_ context.Context, hash string) (*model.Question, error) {
	for _, q := range m.questions {
		if q.ContentHash == hash {
			cp := *q
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) FindByContentHashes(_ context.Context, hashes []string) ([]model.Question, error) {
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}
	var out []model.Question
	for _, q := range m.sorted() {
		if want[q.ContentHash] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) List(_ context.Context, f repository.QuestionFilter, offset, limit int) ([]model.Question, int64, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []model.Question
	all := m.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		if matchQuestion(&all[i], f) {
			matched = append(matched, all[i])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Question{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockQuestionRepo) ListAll(_ context.Context, f repository.QuestionFilter, limit int) ([]model.Question, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Question
	for _, q := range m.sorted() {
		if matchQuestion(&q, f) {
			out = append(out, q)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) Update(_ context.Context, q *model.Question) error {
	if _, ok := m.questions[q.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, existing := range m.questions {
		if id != q.ID && existing.ContentHash == q.ContentHash {
			return gorm.ErrDuplicatedKey
		}
	}
	q.UpdatedAt = time.Now()
	cp := *q
	m.questions[q.ID] = &cp
	return nil
}

func (m *mockQuestionRepo) UpdateFields(_ context.Context, ids []uint, fields map[string]interface{}) (int64, error) {
	var n int64
	for _, id := range ids {
		q, ok := m.questions[id]
		if !ok {
			continue
		}
		for k, v := range fields {
			switch k {
			case "status":
				q.Status = v.(string)
			case "difficulty":
				q.Difficulty = v.(int)
			case "tags":
				q.Tags = v.(datatypes.JSONSlice[string])
			case "reviewer":
				s := v.(string)
				q.Reviewer = &s
			case "reviewed_at":
				t := v.(time.Time)
				q.ReviewedAt = &t
			case "review_comment":
				if v == nil {
					q.ReviewComment = nil
				} else {
					s := v.(string)
					q.ReviewComment = &s
				}
			}
		}
		n++
	}
	return n, nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, id uint) error {
	delete(m.questions, id)
	return nil
}

func (m *mockQuestionRepo) DeleteByIDs(_ context.Context, ids []uint) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m.questions[id]; ok {
			delete(m.questions, id)
			n++
		}
	}
	return n, nil
}

// sorted 按 ID 升序返回全部题目副本
func (m *mockQuestionRepo) sorted() []model.Question {
	out := make([]model.Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchQuestion(q *model.Question, f repository.QuestionFilter) bool {
	if f.QType != "" && q.QType != f.QType {
		return false
	}
	if f.Difficulty != nil && q.Difficulty != *f.Difficulty {
		return false
	}
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	if f.SourceDoc != "" && (q.SourceDoc == nil || *q.SourceDoc != f.SourceDoc) {
		return false
	}
	if f.Search != "" && !strings.Contains(q.Content, f.Search) {
		return false
	}
	if f.Tag != "" && !q.HasTag(f.Tag) {
		return false
	}
	return true
}

// ── Mock TagRepository ──

type mockTagRepo struct {
	tags   map[uint]*model.Tag
	nextID uint
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[uint]*model.Tag), nextID: 1}
}

func (m *mockTagRepo) Create(_ context.Context, tag *model.Tag) error {
	for _, t := range m.tags {
		if t.Name == tag.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	tag.ID = m.nextID
	m.nextID++
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *mockTagRepo) GetByID(_ context.Context, id uint) (*model.Tag, error) {
	if t, ok := m.tags[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTagRepo) GetByName(_ context.Context, name string) (*model.Tag, error) {
	for _, t := range m.tags {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTagRepo) List(_ context.Context, limit int) ([]model.Tag, error) {
	out := make([]model.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockTagRepo) Update(_ context.Context, tag *model.Tag) error {
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *mockTagRepo) Delete(_ context.Context, id uint) error {
	delete(m.tags, id)
	return nil
}

func (m *mockTagRepo) CountChildren(_ context.Context, id uint) (int64, error) {
	var n int64
	for _, t := range m.tags {
		if t.ParentID != nil && *t.ParentID == id {
			n++
		}
	}
	return n, nil
}

// ── Mock ExamRuleRepository ──

type mockExamRuleRepo struct {
	rules  map[uint]*model.ExamRule
	nextID uint
}

func newMockExamRuleRepo() *mockExamRuleRepo {
	return &mockExamRuleRepo{rules: make(map[uint]*model.ExamRule), nextID: 1}
}

func (m *mockExamRuleRepo) Create(_ context.Context, rule *model.ExamRule) error {
	rule.ID = m.nextID
	m.nextID++
	rule.Version = 1
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *mockExamRuleRepo) GetByID(_ context.Context, id uint) (*model.ExamRule, error) {
	if r, ok := m.rules[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamRuleRepo) List(_ context.Context, offset, limit int) ([]model.ExamRule, int64, error) {
	out := make([]model.ExamRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return []model.ExamRule{}, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *mockExamRuleRepo) UpdateWithVersion(_ context.Context, rule *model.ExamRule, expectedVersion int) error {
	stored, ok := m.rules[rule.ID]
	if !ok || stored.Version != expectedVersion {
		return pkgerrors.ErrOptimisticLock
	}
	rule.Version = expectedVersion + 1
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *mockExamRuleRepo) Delete(_ context.Context, id uint) error {
	delete(m.rules, id)
	return nil
}

// ── Mock ExamPaperRepository ──

type mockExamPaperRepo struct {
	papers map[uint]*model.ExamPaper
	nextID uint
}

func newMockExamPaperRepo() *mockExamPaperRepo {
	return &mockExamPaperRepo{papers: make(map[uint]*model.ExamPaper), nextID: 1}
}

func (m *mockExamPaperRepo) Create(_ context.Context, paper *model.ExamPaper) error {
	paper.ID = m.nextID
	m.nextID++
	paper.CreatedAt = time.Now()
	cp := *paper
	m.papers[paper.ID] = &cp
	return nil
}

func (m *mockExamPaperRepo) GetByID(_ context.Context, id uint) (*model.ExamPaper, error) {
	if p, ok := m.papers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamPaperRepo) List(_ context.Context, offset, limit int) ([]model.ExamPaper, int64, error) {
	out := make([]model.ExamPaper, 0, len(m.papers))
	for _, p := range m.papers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return []model.ExamPaper{}, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

// ── Mock OperationLogRepository ──

type mockOperationLogRepo struct {
	logs []model.OperationLog
}

func (m *mockOperationLogRepo) Create(_ context.Context, log *model.OperationLog) error {
	log.ID = uint(len(m.logs) + 1)
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockOperationLogRepo) List(_ context.Context, f repository.OperationLogFilter, offset, limit int) ([]model.OperationLog, int64, error) {
	var matched []model.OperationLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.TargetType != "" && l.TargetType != f.TargetType {
			continue
		}
		matched = append(matched, l)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.OperationLog{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock IDSequenceRepository ──

type mockIDSequenceRepo struct {
	values map[string]int64
}

func (m *mockIDSequenceRepo) Next(_ context.Context, scope string) (int64, error) {
	m.values[scope]++
	return m.values[scope], nil
}
