package archive

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
	"github.com/monomemo/monomemo/database/models"
	repoMemories "github.com/monomemo/monomemo/database/repo/memories"
	"github.com/monomemo/monomemo/internal/dashboard"
	svcMemories "github.com/monomemo/monomemo/internal/memories"
	"github.com/monomemo/monomemo/utils"
)

// Handler 归档处理器
type Handler struct {
	svc          *svcMemories.Service
	dashboardSvc *dashboard.Service
}

// NewHandler 创建归档处理器
func NewHandler(svc *svcMemories.Service, dashboardSvc *dashboard.Service) *Handler {
	return &Handler{
		svc:          svc,
		dashboardSvc: dashboardSvc,
	}
}

type archivedMemoryView struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Month       string     `json:"month"`
	Year        int        `json:"year"`
	ArchivedAt  *time.Time `json:"archived_at"`
	ImageCount  int        `json:"image_count"`
}

func toArchivedViews(list []*models.Memory) []archivedMemoryView {
	views := make([]archivedMemoryView, 0, len(list))
	for _, m := range list {
		views = append(views, archivedMemoryView{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Month:       m.Month,
			Year:        m.Year,
			ArchivedAt:  m.ArchivedAt,
			ImageCount:  len(m.Images),
		})
	}
	return views
}

// ListArchivedHandler 列出当前用户的归档回忆
func (h *Handler) ListArchivedHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	list, err := h.svc.ListArchived(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"memories": toArchivedViews(list),
		"total":    len(list),
	})
}

// RestoreMemoryHandler 把归档回忆还原回活动集合
// 槽位已被新回忆占用时还原失败。
func (h *Handler) RestoreMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	memoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid memory ID")
		return
	}

	if err := h.svc.Restore(c.Request.Context(), userID, uint(memoryID)); err != nil {
		respondServiceError(c, err)
		return
	}

	h.invalidateDashboard(userID)

	common.RespondSuccessMessage(c, "Memory restored", nil)
}

// DestroyMemoryHandler 永久删除归档回忆
// 远端对象尽力删除，失败不阻塞本地删除。
func (h *Handler) DestroyMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	memoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid memory ID")
		return
	}

	if err := h.svc.Destroy(c.Request.Context(), userID, uint(memoryID)); err != nil {
		respondServiceError(c, err)
		return
	}

	h.invalidateDashboard(userID)

	common.RespondSuccessMessage(c, "Memory permanently deleted", nil)
}

func (h *Handler) invalidateDashboard(userID uint) {
	utils.SafeGo(func() {
		h.dashboardSvc.InvalidateMedia(context.Background(), userID)
	})
}

// respondServiceError 把服务层错误映射为 HTTP 状态码
func respondServiceError(c *gin.Context, err error) {
	var authzErr *svcMemories.AuthorizationError
	if errors.As(err, &authzErr) {
		common.RespondError(c, http.StatusForbidden, authzErr.Error())
		return
	}

	var conflictErr *svcMemories.ConflictError
	if errors.As(err, &conflictErr) {
		common.RespondError(c, http.StatusConflict, conflictErr.Error())
		return
	}

	if errors.Is(err, repoMemories.ErrMemoryNotFound) {
		common.RespondError(c, http.StatusNotFound, "Memory not found")
		return
	}

	common.RespondError(c, http.StatusInternalServerError, "Internal server error")
}
