package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/internal/auth"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthRequired 校验 Bearer 访问令牌并把用户身份写入上下文
func AuthRequired(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondError(c, http.StatusUnauthorized, "No Authorization request header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.RespondError(c, http.StatusUnauthorized, "Authorization field format error")
			c.Abort()
			return
		}

		claims, err := jwtService.ParseToken(parts[1])
		if err != nil {
			common.RespondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		userIDValue, ok := claims["user_id"].(float64)
		if !ok {
			common.RespondError(c, http.StatusUnauthorized, "user_id not found in token claims")
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)

		c.Set(ContextUserIDKey, uint(userIDValue))
		c.Set(ContextUsernameKey, username)
		c.Next()
	}
}
