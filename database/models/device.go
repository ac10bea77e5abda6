package models

import (
	"time"

	"gorm.io/gorm"
)

// Device 登录设备，保存刷新令牌
type Device struct {
	gorm.Model
	UserID             uint   `gorm:"not null;index"`
	DeviceID           string `gorm:"uniqueIndex;not null"`
	RefreshToken       string `gorm:"not null"`
	RefreshTokenExpiry time.Time

	User User `gorm:"foreignKey:UserID"`
}
