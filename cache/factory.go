package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/monomemo/monomemo/cache/memory"
	cacheRedis "github.com/monomemo/monomemo/cache/redis"
	"github.com/monomemo/monomemo/config"
)

// Factory 缓存工厂 - 按配置创建缓存提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的缓存工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	var inner Provider
	var missErr error

	switch cfg.CacheType {
	case "redis":
		r, err := cacheRedis.NewRedis(cacheRedis.Config{
			Addr:     cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		inner = r
		missErr = cacheRedis.ErrCacheMiss

	case "memory", "":
		m, err := memory.NewMemory(memory.Config{
			NumCounters: 1e6,
			MaxCost:     64 << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory cache: %w", err)
		}
		inner = m
		missErr = memory.ErrCacheMiss

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}

	log.Printf("Cache provider '%s' initialized successfully", inner.Name())

	return &Factory{
		provider: &missAdapter{inner: inner, miss: missErr},
	}, nil
}

// GetProvider 获取缓存提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭缓存
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// missAdapter 把各实现自己的未命中错误统一为 cache.ErrCacheMiss
type missAdapter struct {
	inner Provider
	miss  error
}

func (a *missAdapter) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return a.inner.Set(ctx, key, value, expiration)
}

func (a *missAdapter) Get(ctx context.Context, key string, dest interface{}) error {
	err := a.inner.Get(ctx, key, dest)
	if err != nil && errors.Is(err, a.miss) {
		return ErrCacheMiss
	}
	return err
}

func (a *missAdapter) Delete(ctx context.Context, key string) error {
	return a.inner.Delete(ctx, key)
}

func (a *missAdapter) Exists(ctx context.Context, key string) (bool, error) {
	return a.inner.Exists(ctx, key)
}

func (a *missAdapter) Close() error {
	return a.inner.Close()
}

func (a *missAdapter) Name() string {
	return a.inner.Name()
}
