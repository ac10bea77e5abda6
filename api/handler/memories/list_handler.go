package memories

import (
	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
)

// ListMemoriesHandler 列出当前用户的全部未归档回忆
func (h *Handler) ListMemoriesHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	list, err := h.svc.ListActive(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"memories": toMemoryViews(list),
		"total":    len(list),
	})
}
