package accounts

import (
	"errors"
	"time"

	"github.com/monomemo/monomemo/database/models"
	"gorm.io/gorm"
)

// DeviceRepository 登录设备仓库，管理刷新令牌
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository 创建新的设备仓库
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// CreateLoginDevice 记录一次登录产生的设备与刷新令牌
func (r *DeviceRepository) CreateLoginDevice(userID uint, deviceID, refreshToken string, expiry time.Time) error {
	device := &models.Device{
		UserID:             userID,
		DeviceID:           deviceID,
		RefreshToken:       refreshToken,
		RefreshTokenExpiry: expiry,
	}
	return r.db.Create(device).Error
}

// GetDeviceByRefreshTokenAndDeviceID 校验刷新令牌，过期或不存在时返回 (nil, nil)
func (r *DeviceRepository) GetDeviceByRefreshTokenAndDeviceID(refreshToken, deviceID string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("refresh_token = ? AND device_id = ? AND refresh_token_expiry > ?",
		refreshToken, deviceID, time.Now()).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// RotateRefreshToken 轮换刷新令牌
func (r *DeviceRepository) RotateRefreshToken(userID uint, deviceID, newToken string, newExpiry time.Time) error {
	return r.db.Model(&models.Device{}).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Updates(map[string]interface{}{
			"refresh_token":        newToken,
			"refresh_token_expiry": newExpiry,
		}).Error
}

// DeleteDeviceByDeviceID 删除设备记录（登出）
func (r *DeviceRepository) DeleteDeviceByDeviceID(deviceID string) error {
	return r.db.Unscoped().Where("device_id = ?", deviceID).Delete(&models.Device{}).Error
}

// DeleteExpiredDevices 清理过期的设备记录
func (r *DeviceRepository) DeleteExpiredDevices() error {
	return r.db.Unscoped().Where("refresh_token_expiry <= ?", time.Now()).Delete(&models.Device{}).Error
}
