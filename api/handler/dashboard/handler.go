package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
	"github.com/monomemo/monomemo/internal/dashboard"
)

// Handler Dashboard 处理器
type Handler struct {
	svc *dashboard.Service
}

// NewHandler 创建新的 Dashboard 处理器
func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{
		svc: svc,
	}
}

// GetMedia 获取用户全部活动图片的乱序列表
// GET /api/v1/dashboard
func (h *Handler) GetMedia(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	media, err := h.svc.GetShuffledMedia(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to get dashboard media")
		return
	}

	common.RespondSuccess(c, gin.H{
		"media": media,
		"total": len(media),
	})
}
