package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/pkg/redis"
)

func setupTestTagService(t *testing.T) (TagService, *testRepos, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo, m := newTestRepos()
	return NewTagService(repo, redis.NewFromClient(rdb, zap.NewNop()), zap.NewNop()), m, mr
}

func mustCreateTag(t *testing.T, svc TagService, name string, parent *uint) uint {
	t.Helper()
	tag, err := svc.Create(context.Background(), &dto.CreateTagRequest{Name: name, ParentID: parent})
	if err != nil {
		t.Fatalf("创建标签 %s 失败: %v", name, err)
	}
	return tag.ID
}

func TestTagService_CreateAndTree(t *testing.T) {
	svc, _, _ := setupTestTagService(t)
	ctx := context.Background()

	root := mustCreateTag(t, svc, "计算机网络", nil)
	mustCreateTag(t, svc, "TCP", &root)
	mustCreateTag(t, svc, "操作系统", nil)

	tree, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree 失败: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("期望 2 个根节点，实际=%d", len(tree))
	}
	if tree[0].Name != "计算机网络" || len(tree[0].Children) != 1 || tree[0].Children[0].Name != "TCP" {
		t.Errorf("树结构不符: %+v", tree[0])
	}
	if tree[1].Children == nil {
		t.Error("叶子节点 children 应为空数组而非 nil")
	}
}

func TestTagService_Create_Validation(t *testing.T) {
	svc, _, _ := setupTestTagService(t)
	ctx := context.Background()
	mustCreateTag(t, svc, "网络", nil)

	if _, err := svc.Create(ctx, &dto.CreateTagRequest{Name: "  "}); !errors.Is(err, ErrTagNameEmpty) {
		t.Errorf("空名称期望 ErrTagNameEmpty，实际 %v", err)
	}
	if _, err := svc.Create(ctx, &dto.CreateTagRequest{Name: " 网络 "}); !errors.Is(err, ErrTagNameExists) {
		t.Errorf("重名期望 ErrTagNameExists，实际 %v", err)
	}
	missing := uint(99)
	if _, err := svc.Create(ctx, &dto.CreateTagRequest{Name: "孤儿", ParentID: &missing}); !errors.Is(err, ErrParentTagNotFound) {
		t.Errorf("父标签不存在期望 ErrParentTagNotFound，实际 %v", err)
	}
}

func TestTagService_Update_Cycle(t *testing.T) {
	svc, _, _ := setupTestTagService(t)
	ctx := context.Background()

	a := mustCreateTag(t, svc, "A", nil)
	b := mustCreateTag(t, svc, "B", &a)
	c := mustCreateTag(t, svc, "C", &b)

	if _, err := svc.Update(ctx, a, &dto.UpdateTagRequest{ParentID: &a}); !errors.Is(err, ErrTagCycle) {
		t.Errorf("自身作为父标签期望 ErrTagCycle，实际 %v", err)
	}
	if _, err := svc.Update(ctx, a, &dto.UpdateTagRequest{ParentID: &c}); !errors.Is(err, ErrTagCycle) {
		t.Errorf("A → C → B → A 期望 ErrTagCycle，实际 %v", err)
	}

	// 合法移动 + 清除父标签
	tag, err := svc.Update(ctx, c, &dto.UpdateTagRequest{ParentID: &a})
	if err != nil || tag.ParentID == nil || *tag.ParentID != a {
		t.Fatalf("C 移到 A 下应成功: %v", err)
	}
	tag, err = svc.Update(ctx, c, &dto.UpdateTagRequest{ClearParent: true, Name: ptr("C2")})
	if err != nil || tag.ParentID != nil || tag.Name != "C2" {
		t.Errorf("清除父标签并改名失败: %+v %v", tag, err)
	}

	if _, err := svc.Update(ctx, 99, &dto.UpdateTagRequest{Name: ptr("x")}); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("期望 ErrTagNotFound，实际 %v", err)
	}
}

func TestTagService_Delete(t *testing.T) {
	svc, m, _ := setupTestTagService(t)
	ctx := context.Background()

	parent := mustCreateTag(t, svc, "父", nil)
	child := mustCreateTag(t, svc, "子", &parent)

	if _, err := svc.Delete(ctx, parent); !errors.Is(err, ErrTagHasChildren) {
		t.Errorf("有子标签时期望 ErrTagHasChildren，实际 %v", err)
	}
	deleted, err := svc.Delete(ctx, child)
	if err != nil || deleted.Name != "子" {
		t.Fatalf("删除子标签失败: %v", err)
	}
	if _, err := svc.Delete(ctx, parent); err != nil {
		t.Fatalf("子标签删除后父标签应可删除: %v", err)
	}
	if len(m.tag.tags) != 0 {
		t.Errorf("期望全部删除，剩余=%d", len(m.tag.tags))
	}
}

func TestTagService_ListCache(t *testing.T) {
	svc, m, mr := setupTestTagService(t)
	ctx := context.Background()

	mustCreateTag(t, svc, "网络", nil)
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if !mr.Exists(tagCacheKey) {
		t.Fatal("List 后应写入缓存")
	}

	// 绕过 service 直接改仓储，缓存命中时看不到变化
	m.tag.tags[1].Name = "被篡改"
	tags, _ := svc.List(ctx)
	if tags[0].Name != "网络" {
		t.Errorf("应命中缓存，实际=%s", tags[0].Name)
	}

	// 写操作清除缓存
	mustCreateTag(t, svc, "操作系统", nil)
	if mr.Exists(tagCacheKey) {
		t.Error("写操作后缓存应失效")
	}
	tags, _ = svc.List(ctx)
	if len(tags) != 2 || tags[0].Name != "被篡改" {
		t.Errorf("缓存失效后应读取仓储，实际=%+v", tags)
	}
}

func TestTagService_NilCache(t *testing.T) {
	repo, _ := newTestRepos()
	svc := NewTagService(repo, nil, zap.NewNop())

	tags, err := svc.List(context.Background())
	if err != nil || tags == nil || len(tags) != 0 {
		t.Errorf("无缓存时应返回空数组: %v %v", tags, err)
	}
}
