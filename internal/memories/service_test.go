package memories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/monomemo/monomemo/database/models"
	repo "github.com/monomemo/monomemo/database/repo/memories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeStorage 记录所有存储调用的假提供者
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	saveErrs map[int]error // 第 N 次 Save 返回的错误（从 0 计数）
	delErr   error         // 所有 Delete 返回的错误
	saves    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  make(map[string][]byte),
		saveErrs: make(map[int]error),
	}
}

func (f *fakeStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.saveErrs[f.saves]; ok {
		f.saves++
		return err
	}
	f.saves++
	data, _ := io.ReadAll(file)
	f.objects[identifier] = data
	return nil
}

func (f *fakeStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[identifier]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, identifier)
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, identifier)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[identifier]
	return ok, nil
}

func (f *fakeStorage) URL(identifier string) string {
	return "http://blobs.example/" + identifier
}

func (f *fakeStorage) Health(ctx context.Context) error { return nil }

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeStorage) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// pngBytes 返回带 PNG 魔数的假图片数据
func pngBytes(n int) []byte {
	data := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	data = append(data, byte(n))
	return data
}

func testFiles(count int) []FileUpload {
	files := make([]FileUpload, 0, count)
	for i := 0; i < count; i++ {
		files = append(files, FileUpload{
			Name: fmt.Sprintf("photo-%d.png", i+1),
			Data: pngBytes(i),
		})
	}
	return files
}

func setupService(t *testing.T) (*Service, *fakeStorage, *repo.Repository, uint) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Memory{}, &models.Image{}))

	user := &models.User{Username: "alice", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	r := repo.NewRepository(db)
	blobs := newFakeStorage()
	svc := NewService(r, blobs, Limits{MinYear: 2020, MaxUploadBytes: 10 << 20})
	return svc, blobs, r, user.ID
}

func createInput(month string, year, count int) CreateInput {
	return CreateInput{
		Title:       "Trip",
		Description: "A month to remember",
		Month:       month,
		Year:        year,
		Files:       testFiles(count),
	}
}

// TestCreate 正常创建，图片保持请求顺序
func TestCreate(t *testing.T) {
	svc, blobs, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)
	assert.Equal(t, "June", memory.Month)
	assert.Equal(t, 2024, memory.Year)
	require.Len(t, memory.Images, 5)
	for i, image := range memory.Images {
		assert.Equal(t, i+1, image.SortOrder)
		assert.NotEmpty(t, image.RemoteID)
		assert.Equal(t, "http://blobs.example/"+image.RemoteID, image.RemoteURL)
	}
	assert.Equal(t, 5, blobs.objectCount())
}

// TestCreate_Validation 验证阶段失败时不触碰存储
func TestCreate_Validation(t *testing.T) {
	svc, blobs, _, userID := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
		field string
	}{
		{"empty title", CreateInput{Title: "  ", Description: "d", Month: "June", Year: 2024, Files: testFiles(5)}, "title"},
		{"empty description", CreateInput{Title: "t", Description: " ", Month: "June", Year: 2024, Files: testFiles(5)}, "description"},
		{"abbreviated month", createInput("Jun", 2024, 5), "month"},
		{"lowercase month", createInput("june", 2024, 5), "month"},
		{"year too old", createInput("June", 2019, 5), "year"},
		{"year too far ahead", createInput("June", 2100, 5), "year"},
		{"too few images", createInput("June", 2024, 4), "images"},
		{"too many images", createInput("June", 2024, 11), "images"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, userID, tt.input)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	assert.Zero(t, blobs.objectCount())
}

// TestCreate_NonImagePayload 非图片内容被拒绝
func TestCreate_NonImagePayload(t *testing.T) {
	svc, _, _, userID := setupService(t)

	input := createInput("June", 2024, 5)
	input.Files[2].Data = []byte("<html>not an image</html>")

	_, err := svc.Create(context.Background(), userID, input)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "images", validationErr.Field)
}

// TestCreate_SlotConflict 同一槽位不允许两个活动回忆
func TestCreate_SlotConflict(t *testing.T) {
	svc, _, _, userID := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)

	_, err = svc.Create(ctx, userID, createInput("June", 2024, 6))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "June", conflictErr.Month)
	assert.Equal(t, 2024, conflictErr.Year)

	// 别的槽位不受影响
	_, err = svc.Create(ctx, userID, createInput("July", 2024, 5))
	assert.NoError(t, err)
}

// TestCreate_UploadFailureRollsBack 第 N 张上传失败时本地记录消失、已上传对象被回收
func TestCreate_UploadFailureRollsBack(t *testing.T) {
	svc, blobs, r, userID := setupService(t)
	ctx := context.Background()

	blobs.saveErrs[3] = errors.New("bucket unavailable")

	_, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 3, uploadErr.Index)

	// 本地无残留
	exists, err := r.ExistsActiveForSlot(userID, "June", 2024)
	require.NoError(t, err)
	assert.False(t, exists)

	// 已上传的 3 张都发出了删除
	assert.Len(t, blobs.deletedIDs(), 3)
	assert.Zero(t, blobs.objectCount())

	// 槽位可以重试
	_, err = svc.Create(ctx, userID, createInput("June", 2024, 5))
	assert.NoError(t, err)
}

// TestUpdate 编辑文案并删除图片
func TestUpdate(t *testing.T) {
	svc, blobs, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 7))
	require.NoError(t, err)

	input := UpdateInput{
		Title:          "New title",
		Description:    "New description",
		DeleteImageIDs: []uint{memory.Images[0].ID, memory.Images[1].ID},
	}
	updated, err := svc.Update(ctx, userID, memory.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "New description", updated.Description)
	assert.Len(t, updated.Images, 5)
	assert.Len(t, blobs.deletedIDs(), 2)
}

// TestUpdate_BelowMinimumRollsBack 删得太多时整个编辑回滚
func TestUpdate_BelowMinimumRollsBack(t *testing.T) {
	svc, _, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)

	input := UpdateInput{
		Title:          "New title",
		Description:    "New description",
		DeleteImageIDs: []uint{memory.Images[0].ID},
	}
	_, err = svc.Update(ctx, userID, memory.ID, input)
	var invariantErr *InvariantViolation
	require.ErrorAs(t, err, &invariantErr)
	assert.Equal(t, 4, invariantErr.Count)

	// 文案和图片都保持原样
	got, err := svc.Get(ctx, userID, memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Title)
	assert.Len(t, got.Images, 5)
}

// TestUpdate_RemoteDeleteFailureDoesNotBlock 远端删除失败不阻塞编辑
func TestUpdate_RemoteDeleteFailureDoesNotBlock(t *testing.T) {
	svc, blobs, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 7))
	require.NoError(t, err)

	blobs.delErr = errors.New("storage down")

	input := UpdateInput{
		Title:          "New title",
		Description:    "New description",
		DeleteImageIDs: []uint{memory.Images[0].ID},
	}
	updated, err := svc.Update(ctx, userID, memory.ID, input)
	require.NoError(t, err)
	assert.Len(t, updated.Images, 6)
}

// TestUpdate_Authorization 非所有者和归档状态都不能编辑
func TestUpdate_Authorization(t *testing.T) {
	svc, _, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)

	input := UpdateInput{Title: "t", Description: "d"}

	_, err = svc.Update(ctx, userID+1, memory.ID, input)
	var authzErr *AuthorizationError
	assert.ErrorAs(t, err, &authzErr)

	require.NoError(t, svc.Archive(ctx, userID, memory.ID))
	_, err = svc.Update(ctx, userID, memory.ID, input)
	assert.ErrorAs(t, err, &authzErr)
}

// TestArchiveRestoreDestroy 覆盖完整的生命周期
func TestArchiveRestoreDestroy(t *testing.T) {
	svc, blobs, r, userID := setupService(t)
	ctx := context.Background()

	// 创建并归档 June 2024
	first, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, userID, first.ID))

	// 归档不触碰远端对象
	assert.Empty(t, blobs.deletedIDs())
	assert.Equal(t, 5, blobs.objectCount())

	// 槽位释放后可以再创建
	second, err := svc.Create(ctx, userID, createInput("June", 2024, 7))
	require.NoError(t, err)

	// 槽位被占用时恢复失败，回忆保持归档
	err = svc.Restore(ctx, userID, first.ID)
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	archived, err := svc.ListArchived(ctx, userID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, first.ID, archived[0].ID)

	// 活动的回忆不能直接销毁
	err = svc.Destroy(ctx, userID, second.ID)
	var authzErr *AuthorizationError
	assert.ErrorAs(t, err, &authzErr)

	// 销毁归档的回忆：本地记录消失，远端对象全部发出删除
	require.NoError(t, svc.Destroy(ctx, userID, first.ID))
	_, err = svc.Get(ctx, userID, first.ID)
	assert.ErrorIs(t, err, repo.ErrMemoryNotFound)
	assert.Len(t, blobs.deletedIDs(), 5)
	count, err := r.CountImages(first.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// 槽位空出来之后，第二个归档再恢复就能成功
	require.NoError(t, svc.Archive(ctx, userID, second.ID))
	require.NoError(t, svc.Restore(ctx, userID, second.ID))
	active, err := svc.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}

// TestDestroy_RemoteFailureStillDeletesLocally 远端删除失败不阻塞本地删除
func TestDestroy_RemoteFailureStillDeletesLocally(t *testing.T) {
	svc, blobs, _, userID := setupService(t)
	ctx := context.Background()

	memory, err := svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, userID, memory.ID))

	blobs.delErr = errors.New("storage down")

	require.NoError(t, svc.Destroy(ctx, userID, memory.ID))
	_, err = svc.Get(ctx, userID, memory.ID)
	assert.ErrorIs(t, err, repo.ErrMemoryNotFound)
	assert.Len(t, blobs.deletedIDs(), 5)
}

// TestCheckAvailability 槽位查询
func TestCheckAvailability(t *testing.T) {
	svc, _, _, userID := setupService(t)
	ctx := context.Background()

	available, err := svc.CheckAvailability(ctx, userID, "June", 2024)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = svc.Create(ctx, userID, createInput("June", 2024, 5))
	require.NoError(t, err)

	available, err = svc.CheckAvailability(ctx, userID, "June", 2024)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.CheckAvailability(ctx, userID, "Juin", 2024)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

// TestIsValidMonth 月份名只接受规范英文全称
func TestIsValidMonth(t *testing.T) {
	for _, m := range []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"} {
		assert.True(t, IsValidMonth(m), m)
	}
	for _, m := range []string{"Jan", "january", "JUNE", "", "Smarch"} {
		assert.False(t, IsValidMonth(m), m)
	}
}
