package models

import "gorm.io/gorm"

// Image 回忆中的一张图片
// RemoteID 是对象存储侧的删除凭据，RemoteURL 对核心逻辑不透明。
type Image struct {
	gorm.Model
	MemoryID  uint   `gorm:"not null;index"`
	RemoteURL string `gorm:"not null"`
	RemoteID  string `gorm:"not null;index"`
	SortOrder int    `gorm:"column:sort_order;not null"`

	Memory Memory `gorm:"foreignKey:MemoryID"`
}
