package dashboard

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/monomemo/monomemo/cache"
	repo "github.com/monomemo/monomemo/database/repo/memories"
)

// MediaItem 面板上的一张图片
type MediaItem struct {
	ID        uint   `json:"id"`
	MemoryID  uint   `json:"memory_id"`
	RemoteURL string `json:"url"`
}

// Service 媒体面板服务
// 返回用户所有未归档回忆的图片，每次请求重新洗牌；
// 图片清单本身走缓存，洗牌不缓存。
type Service struct {
	repo     *repo.Repository
	cache    cache.Provider
	cacheTTL time.Duration
}

// NewService 创建新的面板服务
func NewService(r *repo.Repository, cacheProvider cache.Provider, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		repo:     r,
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
	}
}

// mediaCacheKey 面板图片清单的缓存键
func mediaCacheKey(userID uint) string {
	return fmt.Sprintf("dashboard:media:%d", userID)
}

// GetShuffledMedia 获取用户的洗牌图片流
func (s *Service) GetShuffledMedia(ctx context.Context, userID uint) ([]MediaItem, error) {
	items, err := s.loadMedia(ctx, userID)
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	return items, nil
}

// loadMedia 加载图片清单，优先命中缓存
func (s *Service) loadMedia(ctx context.Context, userID uint) ([]MediaItem, error) {
	key := mediaCacheKey(userID)

	if s.cache != nil {
		var cached []MediaItem
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	images, err := s.repo.ListImagesForUser(userID)
	if err != nil {
		return nil, err
	}

	items := make([]MediaItem, len(images))
	for i, img := range images {
		items[i] = MediaItem{
			ID:        img.ID,
			MemoryID:  img.MemoryID,
			RemoteURL: img.RemoteURL,
		}
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, items, s.cacheTTL)
	}
	return items, nil
}

// InvalidateMedia 图片集变化后让缓存失效
func (s *Service) InvalidateMedia(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, mediaCacheKey(userID))
}
