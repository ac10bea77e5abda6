package memories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/monomemo/monomemo/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMemoryNotFound 回忆不存在
var ErrMemoryNotFound = errors.New("memory not found")

// Repository 回忆仓库 - 封装所有回忆/图片相关的数据库操作
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的回忆仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// WithContext 返回带上下文的仓库
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}

// Transaction 在事务中执行函数
func (r *Repository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// ExistsActiveForSlot 检查 (owner, month, year) 是否已有未归档的回忆
func (r *Repository) ExistsActiveForSlot(userID uint, month string, year int) (bool, error) {
	var count int64
	err := r.db.Model(&models.Memory{}).
		Scopes(models.ScopeActive).
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Count(&count).Error
	return count > 0, err
}

// CreateMemory 创建回忆记录
func (r *Repository) CreateMemory(memory *models.Memory) error {
	return r.db.Create(memory).Error
}

// CreateImage 创建图片记录
func (r *Repository) CreateImage(image *models.Image) error {
	return r.db.Create(image).Error
}

// GetMemoryWithImages 获取回忆及其图片（按展示顺序）
func (r *Repository) GetMemoryWithImages(memoryID uint) (*models.Memory, error) {
	var memory models.Memory
	err := r.db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&memory, memoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, err
	}
	return &memory, nil
}

// GetMemoryForUpdate 加锁获取回忆，用于事务内的状态变更
func (r *Repository) GetMemoryForUpdate(memoryID uint) (*models.Memory, error) {
	var memory models.Memory
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&memory, memoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, err
	}
	return &memory, nil
}

// GetImagesByIDs 获取回忆中指定的图片
func (r *Repository) GetImagesByIDs(memoryID uint, imageIDs []uint) ([]*models.Image, error) {
	if len(imageIDs) == 0 {
		return []*models.Image{}, nil
	}
	var images []*models.Image
	err := r.db.Where("memory_id = ? AND id IN ?", memoryID, imageIDs).Find(&images).Error
	return images, err
}

// UpdateMemoryFields 更新标题和描述
func (r *Repository) UpdateMemoryFields(memoryID uint, title, description string) error {
	return r.db.Model(&models.Memory{}).Where("id = ?", memoryID).
		Updates(map[string]interface{}{
			"title":       title,
			"description": description,
		}).Error
}

// DeleteImage 删除单条图片记录
func (r *Repository) DeleteImage(imageID uint) error {
	return r.db.Unscoped().Delete(&models.Image{}, imageID).Error
}

// CountImages 统计回忆的图片数量
func (r *Repository) CountImages(memoryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("memory_id = ?", memoryID).Count(&count).Error
	return count, err
}

// SetArchivedAt 设置/清除归档时间戳
// archivedAt 为 nil 表示恢复为未归档状态。
func (r *Repository) SetArchivedAt(memoryID uint, archivedAt *time.Time) error {
	return r.db.Model(&models.Memory{}).Where("id = ?", memoryID).
		Update("archived_at", archivedAt).Error
}

// DeleteMemoryCascade 彻底删除回忆及其全部图片记录
func (r *Repository) DeleteMemoryCascade(memoryID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("memory_id = ?", memoryID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Memory{}, memoryID).Error
	})
}

// ListActive 获取用户未归档的回忆列表（新创建的在前）
func (r *Repository) ListActive(userID uint) ([]*models.Memory, error) {
	var list []*models.Memory
	err := r.db.Scopes(models.ScopeActive).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("user_id = ?", userID).
		Order("year DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

// ListArchived 获取用户已归档的回忆列表（最近归档的在前）
func (r *Repository) ListArchived(userID uint) ([]*models.Memory, error) {
	var list []*models.Memory
	err := r.db.Scopes(models.ScopeArchived).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("user_id = ?", userID).
		Order("archived_at DESC").
		Find(&list).Error
	return list, err
}

// ListImagesForUser 获取用户所有未归档回忆的图片
func (r *Repository) ListImagesForUser(userID uint) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.
		Joins("JOIN memories ON memories.id = images.memory_id").
		Where("memories.user_id = ? AND memories.archived_at IS NULL AND memories.deleted_at IS NULL", userID).
		Find(&images).Error
	return images, err
}

// IsUniqueViolation 判断是否为唯一约束冲突
// sqlite 和 postgres 的报错文本不同，这里统一识别。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
