package memories

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monomemo/monomemo/api/common"
	"github.com/monomemo/monomemo/api/middleware"
	"github.com/monomemo/monomemo/config"
	svcMemories "github.com/monomemo/monomemo/internal/memories"
	"github.com/monomemo/monomemo/utils"
)

// CreateMemoryHandler 创建回忆，表单携带标题、描述、月份、年份和图片文件
func (h *Handler) CreateMemoryHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	year, err := strconv.Atoi(c.PostForm("year"))
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid year")
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "At least one file is required under the 'images' key")
		return
	}

	maxBytes := config.Get().MaxUploadBytes()
	uploads := make([]svcMemories.FileUpload, 0, len(files))
	for _, fileHeader := range files {
		if fileHeader.Size > maxBytes {
			common.RespondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File %s exceeds maximum allowed size (%d MB)", fileHeader.Filename, config.Get().UploadMaxSizeMB))
			return
		}
		data, err := readMultipartFile(fileHeader)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		uploads = append(uploads, svcMemories.FileUpload{
			Name: fileHeader.Filename,
			Data: data,
		})
	}

	input := svcMemories.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Month:       c.PostForm("month"),
		Year:        year,
		Files:       uploads,
	}

	memory, err := h.svc.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.invalidateDashboard(userID)

	common.RespondSuccessMessage(c, "Memory created", toMemoryView(memory))
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// invalidateDashboard 异步清除用户的媒体缓存
func (h *Handler) invalidateDashboard(userID uint) {
	utils.SafeGo(func() {
		h.dashboardSvc.InvalidateMedia(context.Background(), userID)
	})
}
