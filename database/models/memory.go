package models

import (
	"time"

	"gorm.io/gorm"
)

// Memory 每月回忆相册
// 同一用户在 (month, year) 上最多一个未归档的回忆，归档的不参与唯一约束。
// 部分唯一索引是并发创建竞争的最终裁决，应用层检查只是提前反馈。
type Memory struct {
	gorm.Model
	UserID      uint   `gorm:"not null;index;uniqueIndex:idx_user_active_slot,priority:1"`
	Title       string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text;not null"`
	Month       string `gorm:"type:varchar(16);not null;uniqueIndex:idx_user_active_slot,priority:2"`
	Year        int    `gorm:"not null;uniqueIndex:idx_user_active_slot,priority:3,where:archived_at IS NULL"`

	ArchivedAt *time.Time `gorm:"index"`

	User   User     `gorm:"foreignKey:UserID"`
	Images []*Image `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE"`
}

// IsArchived 是否已归档
func (m *Memory) IsArchived() bool {
	return m.ArchivedAt != nil
}

// ScopeActive 只查询未归档的回忆
func ScopeActive(db *gorm.DB) *gorm.DB {
	return db.Where("archived_at IS NULL")
}

// ScopeArchived 只查询已归档的回忆
func ScopeArchived(db *gorm.DB) *gorm.DB {
	return db.Where("archived_at IS NOT NULL")
}
