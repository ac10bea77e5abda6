package memories

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/database/models"
	repoMemories "github.com/monomemo/monomemo/database/repo/memories"
	"github.com/monomemo/monomemo/internal/dashboard"
	svcMemories "github.com/monomemo/monomemo/internal/memories"
)

// Handler 回忆处理器
type Handler struct {
	svc          *svcMemories.Service
	dashboardSvc *dashboard.Service
}

// NewHandler 创建回忆处理器
func NewHandler(svc *svcMemories.Service, dashboardSvc *dashboard.Service) *Handler {
	return &Handler{
		svc:          svc,
		dashboardSvc: dashboardSvc,
	}
}

type imageView struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
}

type memoryView struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Month       string      `json:"month"`
	Year        int         `json:"year"`
	ArchivedAt  *time.Time  `json:"archived_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Images      []imageView `json:"images,omitempty"`
}

func toMemoryView(m *models.Memory) memoryView {
	view := memoryView{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Month:       m.Month,
		Year:        m.Year,
		ArchivedAt:  m.ArchivedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, img := range m.Images {
		view.Images = append(view.Images, imageView{
			ID:        img.ID,
			URL:       img.RemoteURL,
			SortOrder: img.SortOrder,
		})
	}
	return view
}

func toMemoryViews(list []*models.Memory) []memoryView {
	views := make([]memoryView, 0, len(list))
	for _, m := range list {
		views = append(views, toMemoryView(m))
	}
	return views
}

// respondServiceError 把服务层错误映射为 HTTP 状态码
func respondServiceError(c *gin.Context, err error) {
	var validationErr *svcMemories.ValidationError
	if errors.As(err, &validationErr) {
		common.RespondError(c, http.StatusBadRequest, validationErr.Error())
		return
	}

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

	var uploadErr *svcMemories.UploadError
	if errors.As(err, &uploadErr) {
		common.RespondError(c, http.StatusBadGateway, uploadErr.Error())
		return
	}

	var invariantErr *svcMemories.InvariantViolation
	if errors.As(err, &invariantErr) {
		common.RespondError(c, http.StatusUnprocessableEntity, invariantErr.Error())
		return
	}

	if errors.Is(err, repoMemories.ErrMemoryNotFound) {
		common.RespondError(c, http.StatusNotFound, "Memory not found")
		return
	}

	common.RespondError(c, http.StatusInternalServerError, "Internal server error")
}
