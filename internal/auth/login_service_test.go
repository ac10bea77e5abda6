package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/monomemo/monomemo/database/models"
	"github.com/monomemo/monomemo/database/repo/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLoginService(t *testing.T) *LoginService {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Device{}))

	jwtService, err := NewJWTService(testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	return NewLoginService(accounts.NewRepository(db), accounts.NewDeviceRepository(db), jwtService)
}

// TestRegister 注册后可以登录
func TestRegister(t *testing.T) {
	svc := setupLoginService(t)

	user, err := svc.Register("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "password123", user.Password)

	result, err := svc.Login("alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEmpty(t, result.DeviceID)
}

// TestRegister_Validation 非法输入被拒绝
func TestRegister_Validation(t *testing.T) {
	svc := setupLoginService(t)

	var validationErr *ValidationError

	_, err := svc.Register("ab", "password123")
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.Register("alice", "short")
	assert.ErrorAs(t, err, &validationErr)
}

// TestRegister_UsernameTaken 不允许重复用户名
func TestRegister_UsernameTaken(t *testing.T) {
	svc := setupLoginService(t)

	_, err := svc.Register("alice", "password123")
	require.NoError(t, err)

	_, err = svc.Register("alice", "different-password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

// TestLogin_InvalidCredentials 错误密码与未知用户都返回同一个错误
func TestLogin_InvalidCredentials(t *testing.T) {
	svc := setupLoginService(t)

	_, err := svc.Register("alice", "password123")
	require.NoError(t, err)

	_, err = svc.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestRefreshToken_Rotation 刷新后旧令牌失效
func TestRefreshToken_Rotation(t *testing.T) {
	svc := setupLoginService(t)

	_, err := svc.Register("alice", "password123")
	require.NoError(t, err)
	login, err := svc.Login("alice", "password123")
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(login.RefreshToken, login.DeviceID)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, login.DeviceID, refreshed.DeviceID)

	// 旧刷新令牌不能再用
	_, err = svc.RefreshToken(login.RefreshToken, login.DeviceID)
	assert.Error(t, err)

	// 新的可以继续轮换
	_, err = svc.RefreshToken(refreshed.RefreshToken, login.DeviceID)
	assert.NoError(t, err)
}

// TestLogout 登出后刷新令牌失效
func TestLogout(t *testing.T) {
	svc := setupLoginService(t)

	_, err := svc.Register("alice", "password123")
	require.NoError(t, err)
	login, err := svc.Login("alice", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(login.DeviceID))

	_, err = svc.RefreshToken(login.RefreshToken, login.DeviceID)
	assert.Error(t, err)
}
