package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/config"
	"github.com/monomemo/monomemo/internal/auth"
	"github.com/monomemo/monomemo/utils"
)

// LoginHandler 登录处理器
type LoginHandler struct {
	loginService *auth.LoginService
}

// NewLoginHandler 创建登录处理器
func NewLoginHandler(loginService *auth.LoginService) *LoginHandler {
	return &LoginHandler{
		loginService: loginService,
	}
}

type userAuthRequestBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenExpiry int64  `json:"access_token_expiry"`
}

type registerResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// RegisterHandlerFunc 用户注册
func (h *LoginHandler) RegisterHandlerFunc(context *gin.Context) {
	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.loginService.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			common.RespondError(context, http.StatusConflict, "Username already taken")
			return
		}
		var validationErr *auth.ValidationError
		if errors.As(err, &validationErr) {
			common.RespondError(context, http.StatusBadRequest, validationErr.Error())
			return
		}
		common.RespondError(context, http.StatusInternalServerError, "Internal server error")
		return
	}

	common.RespondSuccessMessage(context, "Registration successful", registerResponse{
		UserID:   user.ID,
		Username: user.Username,
	})
}

// LoginHandlerFunc 用户登录
func (h *LoginHandler) LoginHandlerFunc(context *gin.Context) {
	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, err.Error())
		return
	}

	// 执行登录
	result, err := h.loginService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("Login failed for user %s", utils.SanitizeLogUsername(req.Username))
			common.RespondError(context, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		common.RespondError(context, http.StatusInternalServerError, "Internal server error")
		return
	}

	// 设置 HttpOnly Cookie
	refreshTokenMaxAge := int(time.Until(result.RefreshTokenExpiry).Seconds())
	setAuthCookies(context, result.RefreshToken, result.DeviceID, refreshTokenMaxAge)

	common.RespondSuccessMessage(context, "Login successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
	})
}

// RefreshTokenHandlerFunc 刷新访问令牌
func (h *LoginHandler) RefreshTokenHandlerFunc(context *gin.Context) {
	refreshToken, err := context.Cookie("refresh_token")
	if err != nil {
		common.RespondError(context, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	deviceID, err := context.Cookie("device_id")
	if err != nil {
		common.RespondError(context, http.StatusUnauthorized, "Device ID not found")
		return
	}

	// 刷新令牌
	result, err := h.loginService.RefreshToken(refreshToken, deviceID)
	if err != nil {
		common.RespondError(context, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// 更新 cookies
	newRefreshTokenMaxAge := int(time.Until(result.RefreshTokenExpiry).Seconds())
	setAuthCookies(context, result.RefreshToken, deviceID, newRefreshTokenMaxAge)

	common.RespondSuccessMessage(context, "Refresh token successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
	})
}

// LogoutHandlerFunc 用户登出
func (h *LoginHandler) LogoutHandlerFunc(context *gin.Context) {
	deviceID, err := context.Cookie("device_id")
	if err != nil {
		common.RespondSuccessMessage(context, "Already logged out or session invalid", nil)
		return
	}

	_ = h.loginService.Logout(deviceID)

	clearAuthCookies(context)

	common.RespondSuccessMessage(context, "Logout successful", nil)
}

// setAuthCookies 设置 refresh_token 和 device_id 的 cookie
func setAuthCookies(c *gin.Context, refreshToken, deviceID string, maxAge int) {
	path := "/api/auth/"
	secure := config.IsProduction()

	refreshTokenCookie := http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     path,
		Domain:   "",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	deviceIDCookie := http.Cookie{
		Name:     "device_id",
		Value:    deviceID,
		MaxAge:   maxAge,
		Path:     path,
		Domain:   "",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(c.Writer, &refreshTokenCookie)
	http.SetCookie(c.Writer, &deviceIDCookie)
}

// clearAuthCookies 清除认证相关的 cookie
func clearAuthCookies(c *gin.Context) {
	cfg := config.Get()

	path := "/api/auth/"
	domain := cfg.ServerDomain

	// MaxAge 设为 -1 让浏览器删除 Cookie
	c.SetCookie("refresh_token", "", -1, path, domain, false, true)
	c.SetCookie("device_id", "", -1, path, domain, false, true)
}
