package core

import (
	"context"

	"github.com/monomemo/monomemo/cache"
	"github.com/monomemo/monomemo/database"
	"github.com/monomemo/monomemo/storage"
)

func checkDatabaseHealth(factory *database.Factory) string {
	if factory == nil {
		return "not initialized"
	}

	if err := factory.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(cacheFactory *cache.Factory) string {
	if cacheFactory == nil {
		return "not initialized"
	}
	if cacheFactory.GetProvider() != nil {
		return "ok"
	}
	return "not initialized"
}

func checkStorageHealth(storageFactory *storage.Factory) string {
	if storageFactory == nil {
		return "not initialized"
	}

	provider := storageFactory.GetDefault()
	if provider == nil {
		return "error: no default storage provider"
	}

	ctx := context.Background()
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}

	return "ok"
}
