package memories

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
)

type availabilityRequest struct {
	Month string `json:"month" binding:"required"`
	Year  int    `json:"year" binding:"required"`
}

// CheckAvailabilityHandler 查询某个月份槽位是否可用
func (h *Handler) CheckAvailabilityHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	available, err := h.svc.CheckAvailability(c.Request.Context(), userID, req.Month, req.Year)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"month":     req.Month,
		"year":      req.Year,
		"available": available,
	})
}
