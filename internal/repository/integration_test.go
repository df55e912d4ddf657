//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/pkg/database"
	pkgerrors "exam-bank/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup，真实 PostgreSQL，执行内嵌迁移
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=exam_bank password=exam_bank_password dbname=exam_bank_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	content := uniq("回滚题目")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		q := &model.Question{Content: content, ContentHash: model.ContentFingerprint(content), QType: "single", Status: "draft"}
		if err := tx.Question.Create(ctx, q); err != nil {
			return err
		}
		return errors.New("强制回滚")
	})
	if err == nil {
		t.Fatal("期望事务返回错误")
	}

	if _, err := repo.Question.GetByContentHash(ctx, model.ContentFingerprint(content)); !repository.IsNotFound(err) {
		t.Fatalf("期望回滚后查不到题目，实际 err=%v", err)
	}
}

func TestTransaction_Commit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	content := uniq("提交题目")

	var id uint
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		q := &model.Question{Content: content, ContentHash: model.ContentFingerprint(content), QType: "single", Status: "draft", Tags: []string{"集成"}}
		if err := tx.Question.Create(ctx, q); err != nil {
			return err
		}
		id = q.ID
		return nil
	})
	if err != nil {
		t.Fatalf("事务提交失败: %v", err)
	}
	defer testDB.Delete(&model.Question{}, id)

	found, err := repo.Question.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("提交后查询失败: %v", err)
	}
	if found.Content != content {
		t.Errorf("内容不匹配: %s", found.Content)
	}

	// jsonb 上的标签过滤
	_, total, err := repo.Question.List(ctx, repository.QuestionFilter{Tag: "集成", Search: content}, 0, 10)
	if err != nil || total != 1 {
		t.Errorf("jsonb 标签过滤失败: total=%d err=%v", total, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: IDSequence 并发递增
// ═══════════════════════════════════════════════════════════

func TestIDSequence_Concurrent(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	scope := uniq("S")[:24]
	defer testDB.Where("scope = ?", scope).Delete(&model.IDSequence{})

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.IDSequence.Next(ctx, scope)
			if err != nil {
				t.Errorf("Next 失败: %v", err)
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("并发分配的序号应互不相同，实际 %d 个", len(seen))
	}
	for i := int64(1); i <= n; i++ {
		if !seen[i] {
			t.Errorf("缺少序号 %d", i)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// Test: ExamRule 乐观锁
// ═══════════════════════════════════════════════════════════

func TestExamRule_OptimisticLock(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	rule := &model.ExamRule{Name: uniq("规则"), TotalScore: 100, Config: datatypes.JSON(`{"type_distribution":{"single":1}}`)}
	if err := repo.ExamRule.Create(ctx, rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}
	defer testDB.Delete(&model.ExamRule{}, rule.ID)

	if err := repo.ExamRule.UpdateWithVersion(ctx, rule, rule.Version); err != nil {
		t.Fatalf("首次更新失败: %v", err)
	}
	if err := repo.ExamRule.UpdateWithVersion(ctx, rule, 1); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际 %v", err)
	}
}
