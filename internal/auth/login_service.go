package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monomemo/monomemo/database/models"
	"github.com/monomemo/monomemo/database/repo/accounts"
	cryptoutils "github.com/monomemo/monomemo/utils/crypto"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUsernameTaken 用户名已被占用
var ErrUsernameTaken = errors.New("username already taken")

// ValidationError 注册输入校验错误
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// LoginResult 登录结果
type LoginResult struct {
	User               *models.User
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
	DeviceID           string
}

// RefreshResult Token 刷新结果
type RefreshResult struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
	DeviceID           string
}

// LoginService 登录/注册服务
type LoginService struct {
	accountsRepo *accounts.Repository
	devicesRepo  *accounts.DeviceRepository
	jwtService   *JWTService
}

// NewLoginService 创建新的登录服务
func NewLoginService(
	accountsRepo *accounts.Repository,
	devicesRepo *accounts.DeviceRepository,
	jwtService *JWTService,
) *LoginService {
	return &LoginService{
		accountsRepo: accountsRepo,
		devicesRepo:  devicesRepo,
		jwtService:   jwtService,
	}
}

// Register 注册新用户
func (s *LoginService) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 50 {
		return nil, &ValidationError{Message: "username must be between 3 and 50 characters"}
	}
	if len(password) < 8 {
		return nil, &ValidationError{Message: "password must be at least 8 characters"}
	}

	taken, err := s.accountsRepo.UsernameExists(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := cryptoutils.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Password: hash,
	}
	if err := s.accountsRepo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ValidateCredentials 验证用户凭据
func (s *LoginService) ValidateCredentials(username, password string) (*models.User, bool, error) {
	user, err := s.accountsRepo.GetUserByUsername(username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, false, nil
	}

	ok, err := cryptoutils.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, false, fmt.Errorf("password comparison failed: %w", err)
	}
	return user, ok, nil
}

// Login 执行登录操作
func (s *LoginService) Login(username, password string) (*LoginResult, error) {
	user, valid, err := s.ValidateCredentials(username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to validate credentials: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	tokenPair, err := s.jwtService.GenerateTokens(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	deviceID := uuid.New().String()
	err = s.devicesRepo.CreateLoginDevice(user.ID, deviceID, tokenPair.RefreshToken, tokenPair.RefreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to store device token: %w", err)
	}

	return &LoginResult{
		User:               user,
		AccessToken:        tokenPair.AccessToken,
		AccessTokenExpiry:  tokenPair.AccessTokenExpiry,
		RefreshToken:       tokenPair.RefreshToken,
		RefreshTokenExpiry: tokenPair.RefreshTokenExpiry,
		DeviceID:           deviceID,
	}, nil
}

// RefreshToken 刷新访问令牌
func (s *LoginService) RefreshToken(refreshToken, deviceID string) (*RefreshResult, error) {
	device, err := s.devicesRepo.GetDeviceByRefreshTokenAndDeviceID(refreshToken, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, errors.New("invalid refresh token or device ID")
	}

	user, err := s.accountsRepo.GetUserByID(device.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	newRefreshToken, newRefreshTokenExpiry, err := s.jwtService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate new refresh token: %w", err)
	}

	// 轮换刷新令牌
	err = s.devicesRepo.RotateRefreshToken(user.ID, device.DeviceID, newRefreshToken, newRefreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to update device token: %w", err)
	}

	accessToken, accessTokenExpiry, err := s.jwtService.GenerateAccessToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new access token: %w", err)
	}

	return &RefreshResult{
		AccessToken:        accessToken,
		AccessTokenExpiry:  accessTokenExpiry,
		RefreshToken:       newRefreshToken,
		RefreshTokenExpiry: newRefreshTokenExpiry,
		DeviceID:           deviceID,
	}, nil
}

// Logout 执行登出操作
func (s *LoginService) Logout(deviceID string) error {
	return s.devicesRepo.DeleteDeviceByDeviceID(deviceID)
}
