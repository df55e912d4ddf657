package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	pkgerrors "exam-bank/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup，内存 sqlite
// ═══════════════════════════════════════════════════════════

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return repository.NewRepository(db)
}

func seedQuestion(t *testing.T, repo *repository.Repository, content, qType string, difficulty int, status string, tags ...string) *model.Question {
	t.Helper()
	q := &model.Question{
		Content:     content,
		ContentHash: model.ContentFingerprint(content),
		QType:       qType,
		Difficulty:  difficulty,
		Status:      status,
		Tags:        tags,
	}
	if err := repo.Question.Create(context.Background(), q); err != nil {
		t.Fatalf("创建题目失败: %v", err)
	}
	return q
}

func intPtr(v int) *int { return &v }

// ────────────────────── Question ──────────────────────

func TestQuestionRepo_ListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedQuestion(t, repo, "TCP 三次握手", "single", 2, "published", "网络", "协议")
	seedQuestion(t, repo, "UDP 无连接", "judge", 1, "published", "网络")
	seedQuestion(t, repo, "B+ 树索引", "single", 3, "draft", "数据库")

	tests := []struct {
		name string
		f    repository.QuestionFilter
		want int64
	}{
		{"全部", repository.QuestionFilter{}, 3},
		{"题型", repository.QuestionFilter{QType: "single"}, 2},
		{"难度", repository.QuestionFilter{Difficulty: intPtr(1)}, 1},
		{"状态", repository.QuestionFilter{Status: "draft"}, 1},
		{"题干搜索", repository.QuestionFilter{Search: "握手"}, 1},
		{"标签", repository.QuestionFilter{Tag: "网络"}, 2},
		{"标签不做前缀匹配", repository.QuestionFilter{Tag: "网"}, 0},
		{"组合", repository.QuestionFilter{Tag: "网络", QType: "judge"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repo.Question.List(ctx, tt.f, 0, 20)
			if err != nil {
				t.Fatalf("List 失败: %v", err)
			}
			if total != tt.want {
				t.Errorf("期望 %d 条，实际 %d", tt.want, total)
			}
		})
	}
}

func TestQuestionRepo_TagFilterSpecialChars(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedQuestion(t, repo, "研发流程", "single", 1, "published", "R&D")
	seedQuestion(t, repo, "泛型约束", "single", 1, "published", "<T>")
	seedQuestion(t, repo, "及格线", "judge", 1, "published", "60%")
	seedQuestion(t, repo, "变量命名", "judge", 1, "published", "snake_case")
	seedQuestion(t, repo, "干扰项", "judge", 1, "published", "600", "snakeXcase")

	tests := []struct {
		tag  string
		want string
	}{
		{"R&D", "研发流程"},
		{"<T>", "泛型约束"},
		{"60%", "及格线"},
		{"snake_case", "变量命名"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			qs, total, err := repo.Question.List(ctx, repository.QuestionFilter{Tag: tt.tag}, 0, 20)
			if err != nil {
				t.Fatalf("List 失败: %v", err)
			}
			if total != 1 || len(qs) != 1 || qs[0].Content != tt.want {
				t.Errorf("标签 %q 应只匹配 %q，实际 total=%d list=%v", tt.tag, tt.want, total, qs)
			}
		})
	}

	// % 与 _ 不作为通配符
	if _, total, _ := repo.Question.List(ctx, repository.QuestionFilter{Tag: "%"}, 0, 20); total != 0 {
		t.Errorf("标签 %% 不应匹配任何题目，实际 %d", total)
	}
	all, err := repo.Question.ListAll(ctx, repository.QuestionFilter{Tag: "R&D"}, 0)
	if err != nil || len(all) != 1 {
		t.Errorf("ListAll 标签过滤不符: len=%d err=%v", len(all), err)
	}
}

func TestQuestionRepo_ListOrderAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, c := range []string{"q1", "q2", "q3"} {
		seedQuestion(t, repo, c, "single", 1, "draft")
	}

	qs, total, err := repo.Question.List(ctx, repository.QuestionFilter{}, 0, 2)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 3 || len(qs) != 2 {
		t.Fatalf("分页不符: total=%d len=%d", total, len(qs))
	}
	if qs[0].Content != "q3" {
		t.Errorf("应按 id 倒序，首条为 %s", qs[0].Content)
	}
}

func TestQuestionRepo_ContentHashUnique(t *testing.T) {
	repo := newTestRepo(t)
	seedQuestion(t, repo, "重复题干", "single", 1, "draft")

	dup := &model.Question{Content: " 重复题干 ", ContentHash: model.ContentFingerprint(" 重复题干 "), QType: "single", Status: "draft"}
	if err := repo.Question.Create(context.Background(), dup); err == nil {
		t.Error("相同指纹应违反唯一约束")
	}

	found, err := repo.Question.GetByContentHash(context.Background(), model.ContentFingerprint("重复题干"))
	if err != nil || found.Content != "重复题干" {
		t.Errorf("按指纹查询失败: %v", err)
	}

	batch, err := repo.Question.FindByContentHashes(context.Background(), []string{
		model.ContentFingerprint("重复题干"),
		model.ContentFingerprint("不存在的题干"),
	})
	if err != nil || len(batch) != 1 || batch[0].Content != "重复题干" {
		t.Errorf("批量按指纹查询不符: len=%d err=%v", len(batch), err)
	}
}

func TestQuestionRepo_BulkUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := seedQuestion(t, repo, "a", "single", 1, "draft")
	b := seedQuestion(t, repo, "b", "single", 1, "draft")

	n, err := repo.Question.UpdateFields(ctx, []uint{a.ID, b.ID}, map[string]interface{}{"difficulty": 4})
	if err != nil || n != 2 {
		t.Fatalf("UpdateFields: n=%d err=%v", n, err)
	}
	got, _ := repo.Question.GetByID(ctx, a.ID)
	if got.Difficulty != 4 {
		t.Errorf("难度未更新: %d", got.Difficulty)
	}

	n, err = repo.Question.DeleteByIDs(ctx, []uint{a.ID, 999})
	if err != nil || n != 1 {
		t.Fatalf("DeleteByIDs: n=%d err=%v", n, err)
	}
	if _, err := repo.Question.GetByID(ctx, a.ID); !repository.IsNotFound(err) {
		t.Errorf("删除后应不存在，实际 %v", err)
	}
}

// ────────────────────── Transaction ──────────────────────

func TestRepository_TransactionRollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		q := &model.Question{Content: "tx", ContentHash: model.ContentFingerprint("tx"), QType: "single", Status: "draft"}
		if err := tx.Question.Create(ctx, q); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 boom，实际 %v", err)
	}
	_, total, _ := repo.Question.List(ctx, repository.QuestionFilter{}, 0, 10)
	if total != 0 {
		t.Errorf("事务失败后不应有数据，实际 %d", total)
	}
}

// ────────────────────── IDSequence ──────────────────────

func TestIDSequenceRepo_Next(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.IDSequence.Next(ctx, "S-20261015")
		if err != nil {
			t.Fatalf("Next 失败: %v", err)
		}
		if got != want {
			t.Errorf("期望 %d，实际 %d", want, got)
		}
	}
	if got, _ := repo.IDSequence.Next(ctx, "J-20261015"); got != 1 {
		t.Errorf("不同 scope 应从 1 开始，实际 %d", got)
	}
}

// ────────────────────── ExamRule ──────────────────────

func TestExamRuleRepo_OptimisticLock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &model.ExamRule{Name: "期中", TotalScore: 100, Config: datatypes.JSON(`{"type_distribution":{"single":2}}`)}
	if err := repo.ExamRule.Create(ctx, rule); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if rule.Version != 1 {
		t.Fatalf("初始版本应为 1，实际 %d", rule.Version)
	}

	rule.Name = "期中（修订）"
	if err := repo.ExamRule.UpdateWithVersion(ctx, rule, 1); err != nil {
		t.Fatalf("UpdateWithVersion 失败: %v", err)
	}
	if rule.Version != 2 {
		t.Errorf("更新后版本应为 2，实际 %d", rule.Version)
	}

	// 使用过期版本号
	if err := repo.ExamRule.UpdateWithVersion(ctx, rule, 1); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际 %v", err)
	}

	got, _ := repo.ExamRule.GetByID(ctx, rule.ID)
	if got.Name != "期中（修订）" || got.Version != 2 {
		t.Errorf("库中数据不符: %+v", got)
	}
}

// ────────────────────── Tag ──────────────────────

func TestTagRepo_Children(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	root := &model.Tag{Name: "计算机"}
	_ = repo.Tag.Create(ctx, root)
	child := &model.Tag{Name: "网络", ParentID: &root.ID}
	_ = repo.Tag.Create(ctx, child)

	n, err := repo.Tag.CountChildren(ctx, root.ID)
	if err != nil || n != 1 {
		t.Errorf("子标签数量不符: %d %v", n, err)
	}
	if _, err := repo.Tag.GetByName(ctx, "网络"); err != nil {
		t.Errorf("GetByName 失败: %v", err)
	}
	if err := repo.Tag.Create(ctx, &model.Tag{Name: "网络"}); err == nil {
		t.Error("标签名应唯一")
	}
}

// ────────────────────── ExamPaper / OperationLog ──────────────────────

func TestExamPaperRepo_SnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	paper := &model.ExamPaper{
		Title: "期末",
		QuestionsSnapshot: []model.QuestionSnapshot{
			{ID: 1, Content: "c", QType: "single", Options: []string{"A. x"}, Answer: "A"},
		},
	}
	if err := repo.ExamPaper.Create(ctx, paper); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	got, err := repo.ExamPaper.GetByID(ctx, paper.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(got.QuestionsSnapshot) != 1 || got.QuestionsSnapshot[0].Options[0] != "A. x" {
		t.Errorf("快照内容不符: %+v", got.QuestionsSnapshot)
	}

	list, total, _ := repo.ExamPaper.List(ctx, 0, 10)
	if total != 1 || len(list) != 1 {
		t.Errorf("列表不符: total=%d", total)
	}
}

func TestOperationLogRepo_Filter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_ = repo.OperationLog.Create(ctx, &model.OperationLog{Action: "batch_delete", TargetType: "question", Status: "success", TargetIDs: []uint{1, 2}})
	_ = repo.OperationLog.Create(ctx, &model.OperationLog{Action: "export", TargetType: "question", Status: "success"})

	logs, total, err := repo.OperationLog.List(ctx, repository.OperationLogFilter{Action: "batch_delete"}, 0, 10)
	if err != nil || total != 1 {
		t.Fatalf("过滤结果不符: total=%d err=%v", total, err)
	}
	if len(logs[0].TargetIDs) != 2 {
		t.Errorf("target_ids 不符: %v", logs[0].TargetIDs)
	}
}
