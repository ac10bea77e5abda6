package memories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
)

// ArchiveMemoryHandler 把回忆移入归档，释放其月份槽位
func (h *Handler) ArchiveMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	memoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid memory ID")
		return
	}

	if err := h.svc.Archive(c.Request.Context(), userID, uint(memoryID)); err != nil {
		respondServiceError(c, err)
		return
	}

	h.invalidateDashboard(userID)

	common.RespondSuccessMessage(c, "Memory archived", nil)
}
