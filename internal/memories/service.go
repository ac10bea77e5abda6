package memories

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monomemo/monomemo/database/models"
	repo "github.com/monomemo/monomemo/database/repo/memories"
	"github.com/monomemo/monomemo/storage"
	"github.com/monomemo/monomemo/utils/validator"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// validMonths 十二个月份的规范英文名
var validMonths = func() map[string]bool {
	m := make(map[string]bool, 12)
	for i := time.January; i <= time.December; i++ {
		m[i.String()] = true
	}
	return m
}()

// IsValidMonth 检查月份是否为规范英文名（如 "January"）
func IsValidMonth(month string) bool {
	return validMonths[month]
}

// Limits 创建回忆时的输入边界
type Limits struct {
	MinYear        int   // 允许的最小年份
	MaxUploadBytes int64 // 单张图片大小上限
}

// Service 回忆生命周期服务
// 负责创建/编辑/归档/恢复/销毁的全部规则，以及对对象存储的补偿处理。
// 远端删除统一是尽力而为：本地库是用户可见状态的唯一事实来源。
type Service struct {
	repo    *repo.Repository
	blobs   storage.Provider
	limits  Limits
	nowFunc func() time.Time
}

// NewService 创建新的回忆服务
func NewService(r *repo.Repository, blobs storage.Provider, limits Limits) *Service {
	if limits.MinYear <= 0 {
		limits.MinYear = 2020
	}
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = 10 << 20
	}
	return &Service{
		repo:    r,
		blobs:   blobs,
		limits:  limits,
		nowFunc: time.Now,
	}
}

// FileUpload 一张待上传的图片
type FileUpload struct {
	Name string
	Data []byte
}

// CreateInput 创建回忆的输入
type CreateInput struct {
	Title       string
	Description string
	Month       string
	Year        int
	Files       []FileUpload
}

// UpdateInput 编辑回忆的输入
type UpdateInput struct {
	Title          string
	Description    string
	DeleteImageIDs []uint
}

// Create 创建回忆及其全部图片
// 回忆记录先落库（图片外键需要它），之后按请求顺序逐张上传。
// 任何一张上传失败都会中止后续上传并删除本地记录，已上传的远端对象
// 尽力回收，回收失败的记录为孤儿对象等待人工对账。
func (s *Service) Create(ctx context.Context, userID uint, input CreateInput) (*models.Memory, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	// 提前检查槽位，给用户尽早的反馈；数据库的部分唯一索引才是最终裁决
	exists, err := s.repo.ExistsActiveForSlot(userID, input.Month, input.Year)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ConflictError{Month: input.Month, Year: input.Year}
	}

	memory := &models.Memory{
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Month:       input.Month,
		Year:        input.Year,
	}
	if err := s.repo.CreateMemory(memory); err != nil {
		if repo.IsUniqueViolation(err) {
			// 并发创建时输给了另一个请求
			return nil, &ConflictError{Month: input.Month, Year: input.Year}
		}
		return nil, err
	}

	var uploaded []string
	for i, file := range input.Files {
		identifier := uuid.New().String()

		_, contentType := validator.IsImageBytes(file.Data)
		if err := s.blobs.SaveWithContext(ctx, identifier, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
			s.abortCreate(ctx, memory.ID, uploaded)
			return nil, &UploadError{Index: i, Err: err}
		}
		uploaded = append(uploaded, identifier)

		image := &models.Image{
			MemoryID:  memory.ID,
			RemoteURL: s.blobs.URL(identifier),
			RemoteID:  identifier,
			SortOrder: i + 1,
		}
		if err := s.repo.CreateImage(image); err != nil {
			s.abortCreate(ctx, memory.ID, uploaded)
			return nil, err
		}
	}

	return s.repo.GetMemoryWithImages(memory.ID)
}

// abortCreate 中止创建：删除本地记录，尽力回收已上传的远端对象
func (s *Service) abortCreate(ctx context.Context, memoryID uint, uploaded []string) {
	if err := s.repo.DeleteMemoryCascade(memoryID); err != nil {
		log.Printf("[memories] failed to roll back memory %d after aborted create: %v", memoryID, err)
	}
	for _, identifier := range uploaded {
		if err := s.blobs.DeleteWithContext(ctx, identifier); err != nil {
			log.Printf("[memories] orphaned remote object %s after aborted create: %v", identifier, err)
		}
	}
}

// Update 编辑标题/描述并删除选中的图片
// 字段更新、远端删除、图片记录删除在同一个事务里；提交前校验最终
// 图片数量，越界则整个本地事务回滚。已发出的远端删除无法撤销，
// 属于可接受的不一致（多出的远端对象，不会出现悬空的本地记录）。
func (s *Service) Update(ctx context.Context, userID uint, memoryID uint, input UpdateInput) (*models.Memory, error) {
	if err := validateTitleDescription(input.Title, input.Description); err != nil {
		return nil, err
	}

	memory, err := s.repo.GetMemoryWithImages(memoryID)
	if err != nil {
		return nil, err
	}
	if memory.UserID != userID {
		return nil, &AuthorizationError{Message: "you do not own this memory"}
	}
	if memory.IsArchived() {
		return nil, &AuthorizationError{Message: "archived memories cannot be edited"}
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.UpdateMemoryFields(memoryID, strings.TrimSpace(input.Title), strings.TrimSpace(input.Description)); err != nil {
			return err
		}

		images, err := txRepo.GetImagesByIDs(memoryID, input.DeleteImageIDs)
		if err != nil {
			return err
		}

		for _, image := range images {
			// 远端删除不阻塞编辑，失败只记录
			if err := s.blobs.DeleteWithContext(ctx, image.RemoteID); err != nil {
				log.Printf("[memories] best-effort remote delete failed for %s: %v", image.RemoteID, err)
			}
			if err := txRepo.DeleteImage(image.ID); err != nil {
				return err
			}
		}

		count, err := txRepo.CountImages(memoryID)
		if err != nil {
			return err
		}
		if count < MinImages || count > MaxImages {
			return &InvariantViolation{Count: int(count)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetMemoryWithImages(memoryID)
}

// Archive 归档回忆，只翻转 archived_at，不碰图片和远端对象
func (s *Service) Archive(ctx context.Context, userID uint, memoryID uint) error {
	memory, err := s.repo.GetMemoryWithImages(memoryID)
	if err != nil {
		return err
	}
	if memory.UserID != userID {
		return &AuthorizationError{Message: "you do not own this memory"}
	}
	if memory.IsArchived() {
		return &AuthorizationError{Message: "memory is already archived"}
	}

	now := s.nowFunc()
	return s.repo.SetArchivedAt(memoryID, &now)
}

// Restore 从归档恢复回忆
// 槽位已被新的未归档回忆占用时恢复失败，回忆保持归档状态。
func (s *Service) Restore(ctx context.Context, userID uint, memoryID uint) error {
	memory, err := s.repo.GetMemoryWithImages(memoryID)
	if err != nil {
		return err
	}
	if memory.UserID != userID {
		return &AuthorizationError{Message: "you do not own this memory"}
	}
	if !memory.IsArchived() {
		return &AuthorizationError{Message: "memory is not archived"}
	}

	exists, err := s.repo.ExistsActiveForSlot(userID, memory.Month, memory.Year)
	if err != nil {
		return err
	}
	if exists {
		return &ConflictError{Month: memory.Month, Year: memory.Year}
	}

	if err := s.repo.SetArchivedAt(memoryID, nil); err != nil {
		if repo.IsUniqueViolation(err) {
			return &ConflictError{Month: memory.Month, Year: memory.Year}
		}
		return err
	}
	return nil
}

// Destroy 彻底删除已归档的回忆
// 远端对象并发尽力删除，失败不阻塞本地删除；本操作不可撤销。
func (s *Service) Destroy(ctx context.Context, userID uint, memoryID uint) error {
	memory, err := s.repo.GetMemoryWithImages(memoryID)
	if err != nil {
		return err
	}
	if memory.UserID != userID {
		return &AuthorizationError{Message: "you do not own this memory"}
	}
	if !memory.IsArchived() {
		return &AuthorizationError{Message: "only archived memories can be permanently deleted"}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, image := range memory.Images {
		remoteID := image.RemoteID
		g.Go(func() error {
			if err := s.blobs.DeleteWithContext(gctx, remoteID); err != nil {
				log.Printf("[memories] best-effort remote delete failed for %s: %v", remoteID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return s.repo.DeleteMemoryCascade(memoryID)
}

// CheckAvailability 检查 (owner, month, year) 槽位是否空闲
// 纯读操作，给前端提前校验用；创建时仍会重新检查。
func (s *Service) CheckAvailability(ctx context.Context, userID uint, month string, year int) (bool, error) {
	if !IsValidMonth(month) {
		return false, &ValidationError{Field: "month", Message: "must be a full English month name"}
	}
	exists, err := s.repo.ExistsActiveForSlot(userID, month, year)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// ListActive 获取用户未归档的回忆
func (s *Service) ListActive(ctx context.Context, userID uint) ([]*models.Memory, error) {
	return s.repo.ListActive(userID)
}

// ListArchived 获取用户已归档的回忆
func (s *Service) ListArchived(ctx context.Context, userID uint) ([]*models.Memory, error) {
	return s.repo.ListArchived(userID)
}

// Get 获取单个回忆（带所有者校验）
func (s *Service) Get(ctx context.Context, userID uint, memoryID uint) (*models.Memory, error) {
	memory, err := s.repo.GetMemoryWithImages(memoryID)
	if err != nil {
		return nil, err
	}
	if memory.UserID != userID {
		return nil, &AuthorizationError{Message: "you do not own this memory"}
	}
	return memory, nil
}

// validateCreate 校验创建输入，全部在任何 I/O 之前完成
func (s *Service) validateCreate(input CreateInput) error {
	if err := validateTitleDescription(input.Title, input.Description); err != nil {
		return err
	}
	if !IsValidMonth(input.Month) {
		return &ValidationError{Field: "month", Message: "must be a full English month name"}
	}
	maxYear := s.nowFunc().Year() + 1
	if input.Year < s.limits.MinYear || input.Year > maxYear {
		return &ValidationError{Field: "year", Message: "out of allowed range"}
	}
	if len(input.Files) < MinImages || len(input.Files) > MaxImages {
		return &ValidationError{Field: "images", Message: "a memory needs between 5 and 10 images"}
	}
	for i, file := range input.Files {
		if len(file.Data) == 0 {
			return &ValidationError{Field: "images", Message: "empty image file"}
		}
		if int64(len(file.Data)) > s.limits.MaxUploadBytes {
			return &ValidationError{Field: "images", Message: "image exceeds the size limit"}
		}
		if ok, _ := validator.IsImageBytes(file.Data); !ok {
			return &ValidationError{Field: "images", Message: fmt.Sprintf("unsupported image type at position %d", i+1)}
		}
	}
	return nil
}

func validateTitleDescription(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if len(title) > 255 {
		return &ValidationError{Field: "title", Message: "must be at most 255 characters"}
	}
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Field: "description", Message: "is required"}
	}
	return nil
}
