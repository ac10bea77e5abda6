package app

import (
	"fmt"
	"log"
	"time"

	"github.com/monomemo/monomemo/cache"
	"github.com/monomemo/monomemo/config"
	"github.com/monomemo/monomemo/database"
	"github.com/monomemo/monomemo/database/repo/accounts"
	memoriesRepo "github.com/monomemo/monomemo/database/repo/memories"
	"github.com/monomemo/monomemo/internal/auth"
	"github.com/monomemo/monomemo/internal/dashboard"
	"github.com/monomemo/monomemo/internal/memories"
	"github.com/monomemo/monomemo/storage"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storageFactory  *storage.Factory
	cacheFactory    *cache.Factory

	AccountsRepo *accounts.Repository
	DevicesRepo  *accounts.DeviceRepository
	MemoriesRepo *memoriesRepo.Repository

	JWTService       *auth.JWTService
	LoginService     *auth.LoginService
	MemoriesService  *memories.Service
	DashboardService *dashboard.Service
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// InitDatabase 初始化数据库工厂和所有仓库
func (c *Container) InitDatabase() error {
	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	db := factory.GetProvider().DB()
	c.AccountsRepo = accounts.NewRepository(db)
	c.DevicesRepo = accounts.NewDeviceRepository(db)
	c.MemoriesRepo = memoriesRepo.NewRepository(db)
	log.Println("Repositories initialized")
	return nil
}

// InitServices 初始化存储、缓存和业务服务
func (c *Container) InitServices() error {
	storageFactory, err := storage.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage factory: %w", err)
	}
	c.storageFactory = storageFactory

	cacheFactory, err := cache.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache factory: %w", err)
	}
	c.cacheFactory = cacheFactory

	jwtService, err := auth.NewJWTService(c.config.JwtSecret, c.config.JwtExpiresIn, c.config.JwtRefreshExpiresIn)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	c.JWTService = jwtService
	c.LoginService = auth.NewLoginService(c.AccountsRepo, c.DevicesRepo, jwtService)

	c.MemoriesService = memories.NewService(c.MemoriesRepo, storageFactory.GetDefault(), memories.Limits{
		MinYear:        c.config.MinYear(),
		MaxUploadBytes: c.config.MaxUploadBytes(),
	})

	mediaTTL := time.Duration(c.config.CacheMediaTTL) * time.Second
	c.DashboardService = dashboard.NewService(c.MemoriesRepo, cacheFactory.GetProvider(), mediaTTL)

	log.Println("Services initialized")
	return nil
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetStorageFactory 获取存储工厂
func (c *Container) GetStorageFactory() *storage.Factory {
	return c.storageFactory
}

// GetCacheFactory 获取缓存工厂
func (c *Container) GetCacheFactory() *cache.Factory {
	return c.cacheFactory
}

// Close 释放容器持有的资源
func (c *Container) Close() error {
	var firstErr error
	if c.cacheFactory != nil {
		if err := c.cacheFactory.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
