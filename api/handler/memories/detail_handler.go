package memories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
)

// GetMemoryHandler 获取单个回忆及其图片
func (h *Handler) GetMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	memoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid memory ID")
		return
	}

	memory, err := h.svc.Get(c.Request.Context(), userID, uint(memoryID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, toMemoryView(memory))
}
