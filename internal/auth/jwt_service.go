package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair 包含访问令牌和刷新令牌
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// TokenConfig 保存 JWT 配置
type TokenConfig struct {
	Secret           []byte
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
}

// JWTService JWT Token 服务
type JWTService struct {
	config TokenConfig
}

// NewJWTService 创建新的 JWT 服务
func NewJWTService(secret string, expiresIn, refreshExpiresIn time.Duration) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long, got %d", len(secret))
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	if refreshExpiresIn <= 0 {
		refreshExpiresIn = 30 * 24 * time.Hour
	}

	return &JWTService{
		config: TokenConfig{
			Secret:           []byte(secret),
			ExpiresIn:        expiresIn,
			RefreshExpiresIn: refreshExpiresIn,
		},
	}, nil
}

// GenerateAccessToken 生成访问令牌
func (s *JWTService) GenerateAccessToken(username string, userID uint) (string, time.Time, error) {
	expiry := time.Now().Add(s.config.ExpiresIn)

	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"type":     "access",
		"exp":      expiry.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiry, nil
}

// GenerateRefreshToken 生成不透明的刷新令牌
func (s *JWTService) GenerateRefreshToken() (string, time.Time, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	expiry := time.Now().Add(s.config.RefreshExpiresIn)
	return base64.RawURLEncoding.EncodeToString(buf), expiry, nil
}

// GenerateTokens 生成访问令牌+刷新令牌
func (s *JWTService) GenerateTokens(username string, userID uint) (*TokenPair, error) {
	accessToken, accessExpiry, err := s.GenerateAccessToken(username, userID)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExpiry, err := s.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:        accessToken,
		AccessTokenExpiry:  accessExpiry,
		RefreshToken:       refreshToken,
		RefreshTokenExpiry: refreshExpiry,
	}, nil
}

// ParseToken 解析并校验访问令牌
func (s *JWTService) ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
