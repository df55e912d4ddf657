package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/pkg/redis"
)

// ── 标签模块业务错误 ──

var (
	ErrTagNotFound       = errors.New("标签不存在")
	ErrTagNameExists     = errors.New("标签名称已存在")
	ErrTagNameEmpty      = errors.New("标签名称不能为空")
	ErrTagHasChildren    = errors.New("该标签下存在子标签，无法删除")
	ErrParentTagNotFound = errors.New("父标签不存在")
	ErrTagCycle          = errors.New("父标签设置会形成循环")
)

const (
	tagCacheKey  = "cache:tags:all"
	tagCacheTTL  = 10 * time.Minute
	tagListLimit = 1000
)

// TagService 标签业务接口
type TagService interface {
	List(ctx context.Context) ([]model.Tag, error)
	Tree(ctx context.Context) ([]*dto.TagTreeNode, error)
	Create(ctx context.Context, req *dto.CreateTagRequest) (*model.Tag, error)
	Update(ctx context.Context, id uint, req *dto.UpdateTagRequest) (*model.Tag, error)
	Delete(ctx context.Context, id uint) (*model.Tag, error)
}

type tagService struct {
	repo   *repository.Repository
	cache  Cache
	logger *zap.Logger
}

// NewTagService 创建 TagService 实例，cache 为 nil 时不缓存
func NewTagService(repo *repository.Repository, cache Cache, logger *zap.Logger) TagService {
	return &tagService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── List / Tree ──────────────────────

func (s *tagService) List(ctx context.Context) ([]model.Tag, error) {
	if s.cache != nil {
		var cached []model.Tag
		err := s.cache.GetJSON(ctx, tagCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取标签缓存失败", zap.Error(err))
		}
	}

	tags, err := s.repo.Tag.List(ctx, tagListLimit)
	if err != nil {
		s.logger.Error("查询标签列表失败", zap.Error(err))
		return nil, err
	}
	if tags == nil {
		tags = []model.Tag{}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, tagCacheKey, tags, tagCacheTTL); err != nil {
			s.logger.Warn("写入标签缓存失败", zap.Error(err))
		}
	}
	return tags, nil
}

// Tree 按 parent_id 组装为森林；父标签缺失的节点作为根
func (s *tagService) Tree(ctx context.Context) ([]*dto.TagTreeNode, error) {
	tags, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return buildTagTree(tags), nil
}

func buildTagTree(tags []model.Tag) []*dto.TagTreeNode {
	nodes := make(map[uint]*dto.TagTreeNode, len(tags))
	for _, t := range tags {
		nodes[t.ID] = &dto.TagTreeNode{ID: t.ID, Name: t.Name, ParentID: t.ParentID, Children: []*dto.TagTreeNode{}}
	}

	roots := []*dto.TagTreeNode{}
	for _, t := range tags {
		node := nodes[t.ID]
		if t.ParentID != nil {
			if parent, ok := nodes[*t.ParentID]; ok && *t.ParentID != t.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// ────────────────────── Create ──────────────────────

func (s *tagService) Create(ctx context.Context, req *dto.CreateTagRequest) (*model.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrTagNameEmpty
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.load(ctx, *req.ParentID, ErrParentTagNotFound); err != nil {
			return nil, err
		}
	}

	tag := &model.Tag{Name: name, ParentID: req.ParentID}
	if err := s.repo.Tag.Create(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagNameExists
		}
		s.logger.Error("创建标签失败", zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx)
	return tag, nil
}

// ────────────────────── Update ──────────────────────

func (s *tagService) Update(ctx context.Context, id uint, req *dto.UpdateTagRequest) (*model.Tag, error) {
	tag, err := s.load(ctx, id, ErrTagNotFound)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrTagNameEmpty
		}
		if name != tag.Name {
			if err := s.ensureNameFree(ctx, name, id); err != nil {
				return nil, err
			}
		}
		tag.Name = name
	}

	switch {
	case req.ClearParent:
		tag.ParentID = nil
	case req.ParentID != nil:
		if err := s.checkParent(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
		parentID := *req.ParentID
		tag.ParentID = &parentID
	}

	if err := s.repo.Tag.Update(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagNameExists
		}
		s.logger.Error("更新标签失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx)
	return tag, nil
}

// checkParent 父标签必须存在，且沿父链向上不能回到自身
func (s *tagService) checkParent(ctx context.Context, id, parentID uint) error {
	if parentID == id {
		return ErrTagCycle
	}

	visited := map[uint]bool{}
	cur := parentID
	for {
		t, err := s.load(ctx, cur, ErrParentTagNotFound)
		if err != nil {
			return err
		}
		if t.ParentID == nil {
			return nil
		}
		next := *t.ParentID
		if next == id {
			return ErrTagCycle
		}
		// 历史数据中已存在的环不影响本次判断
		if visited[next] {
			return nil
		}
		visited[cur] = true
		cur = next
	}
}

// ────────────────────── Delete ──────────────────────

func (s *tagService) Delete(ctx context.Context, id uint) (*model.Tag, error) {
	tag, err := s.load(ctx, id, ErrTagNotFound)
	if err != nil {
		return nil, err
	}

	children, err := s.repo.Tag.CountChildren(ctx, id)
	if err != nil {
		s.logger.Error("统计子标签失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	if children > 0 {
		return nil, ErrTagHasChildren
	}

	if err := s.repo.Tag.Delete(ctx, id); err != nil {
		s.logger.Error("删除标签失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx)
	return tag, nil
}

// ── 辅助函数 ──

func (s *tagService) load(ctx context.Context, id uint, notFound error) (*model.Tag, error) {
	tag, err := s.repo.Tag.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}
	return tag, nil
}

func (s *tagService) ensureNameFree(ctx context.Context, name string, selfID uint) error {
	existing, err := s.repo.Tag.GetByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrTagNameExists
	}
	return nil
}

func (s *tagService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tagCacheKey); err != nil {
		s.logger.Warn("清除标签缓存失败", zap.Error(err))
	}
}
