package memories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
	svcMemories "github.com/monomemo/monomemo/internal/memories"
)

type updateMemoryRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description" binding:"required"`
	DeleteImageIDs []uint `json:"delete_image_ids"`
}

// UpdateMemoryHandler 编辑回忆的文案并可选删除部分图片
// 删除后图片数低于下限时整个编辑会被拒绝并回滚。
func (h *Handler) UpdateMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	memoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid memory ID")
		return
	}

	var req updateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	input := svcMemories.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		DeleteImageIDs: req.DeleteImageIDs,
	}

	memory, err := h.svc.Update(c.Request.Context(), userID, uint(memoryID), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if len(req.DeleteImageIDs) > 0 {
		h.invalidateDashboard(userID)
	}

	common.RespondSuccessMessage(c, "Memory updated", toMemoryView(memory))
}
