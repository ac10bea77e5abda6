package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string `gorm:"unique"`
	Password  string `json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Memories []*Memory `gorm:"foreignKey:UserID"`
}
