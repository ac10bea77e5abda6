package core

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api"
	"github.com/monomemo/monomemo/api/common"
	archiveHandler "github.com/monomemo/monomemo/api/handler/archive"
	dashboardHandler "github.com/monomemo/monomemo/api/handler/dashboard"
	memoriesHandler "github.com/monomemo/monomemo/api/handler/memories"
	"github.com/monomemo/monomemo/api/middleware"
	"github.com/monomemo/monomemo/config"
	"github.com/monomemo/monomemo/internal/app"
	"github.com/monomemo/monomemo/storage"
	"github.com/monomemo/monomemo/utils"
)

var startTime = time.Now()

// 启动gin
func setupRouter(container *app.Container) (*gin.Engine, func()) {
	cfg := config.Get()
	router := gin.New()

	// 全局中间件
	// 仅在开发版本时启用 gin 日志
	if config.CommitHash == "n/a" {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	// 速率限制
	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	router.GET("/health", func(context *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks": gin.H{
				"database": checkDatabaseHealth(container.GetDatabaseFactory()),
				"cache":    checkCacheHealth(container.GetCacheFactory()),
				"storage":  checkStorageHealth(container.GetStorageFactory()),
			},
		}
		httpStatus := http.StatusOK
		for _, checkResult := range health["checks"].(gin.H) {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, health)
	})
	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	// 创建处理器（依赖注入）
	loginHandler := api.NewLoginHandler(container.LoginService)
	memHandler := memoriesHandler.NewHandler(container.MemoriesService, container.DashboardService)
	archHandler := archiveHandler.NewHandler(container.MemoriesService, container.DashboardService)
	dashHandler := dashboardHandler.NewHandler(container.DashboardService)

	// 公共接口：本地存储的图片直出
	blobsGroup := router.Group("/blobs")
	{
		blobsGroup.GET("/:identifier", serveBlob(container.GetStorageFactory())) // GET /blobs/{identifier}
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authRateLimiter.Middleware())
		{
			authGroup.POST("/register", loginHandler.RegisterHandlerFunc)    //POST /api/auth/register
			authGroup.POST("/login", loginHandler.LoginHandlerFunc)          //POST /api/auth/login
			authGroup.POST("/refresh", loginHandler.RefreshTokenHandlerFunc) //POST /api/auth/refresh
			authGroup.POST("/logout", loginHandler.LogoutHandlerFunc)        //POST /api/auth/logout
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(apiRateLimiter.Middleware())
		v1.Use(middleware.AuthRequired(container.JWTService))
		{
			// memories
			memoriesGroup := v1.Group("/memories")
			{
				memoriesGroup.GET("", memHandler.ListMemoriesHandler)                          // GET /api/v1/memories
				memoriesGroup.POST("", memHandler.CreateMemoryHandler)                         // POST /api/v1/memories
				memoriesGroup.POST("/check-availability", memHandler.CheckAvailabilityHandler) // POST /api/v1/memories/check-availability
				memoriesGroup.GET("/:id", memHandler.GetMemoryHandler)                         // GET /api/v1/memories/{id}
				memoriesGroup.PUT("/:id", memHandler.UpdateMemoryHandler)                      // PUT /api/v1/memories/{id}
				memoriesGroup.POST("/:id/archive", memHandler.ArchiveMemoryHandler)            // POST /api/v1/memories/{id}/archive
			}

			// archive
			archiveGroup := v1.Group("/archive")
			{
				archiveGroup.GET("", archHandler.ListArchivedHandler)                // GET /api/v1/archive
				archiveGroup.POST("/:id/restore", archHandler.RestoreMemoryHandler)  // POST /api/v1/archive/{id}/restore
				archiveGroup.DELETE("/:id", archHandler.DestroyMemoryHandler)        // DELETE /api/v1/archive/{id}
			}

			// dashboard
			dashboardGroup := v1.Group("/dashboard")
			{
				dashboardGroup.GET("", dashHandler.GetMedia) // GET /api/v1/dashboard
			}
		}
	}

	return router, cleanup
}

// serveBlob 从默认存储提供者读出对象并返回
func serveBlob(storageFactory *storage.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.Param("identifier")
		if !storage.IsValidIdentifier(identifier) {
			common.RespondError(c, http.StatusBadRequest, "Invalid identifier")
			return
		}

		provider := storageFactory.GetDefault()
		if provider == nil {
			common.RespondError(c, http.StatusServiceUnavailable, "Storage not available")
			return
		}

		reader, err := provider.GetWithContext(c.Request.Context(), identifier)
		if err != nil {
			log.Printf("[blobs] failed to open %s: %v", utils.SanitizeLogMessage(identifier), err)
			common.RespondError(c, http.StatusNotFound, "Blob not found")
			return
		}
		defer reader.Close()

		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, reader)
	}
}

// StartServer 创建 http.Server
func StartServer(container *app.Container) (*http.Server, func()) {
	cfg := config.Get()
	router, clean := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
