package memories

import (
	"fmt"
	"testing"
	"time"

	"github.com/monomemo/monomemo/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// 自动迁移
	err = db.AutoMigrate(&models.User{}, &models.Memory{}, &models.Image{})
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{Username: username, Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestMemory(t *testing.T, r *Repository, userID uint, month string, year int, imageCount int) *models.Memory {
	memory := &models.Memory{
		UserID:      userID,
		Title:       "Trip",
		Description: "A month to remember",
		Month:       month,
		Year:        year,
	}
	require.NoError(t, r.CreateMemory(memory))

	for i := 0; i < imageCount; i++ {
		image := &models.Image{
			MemoryID:  memory.ID,
			RemoteURL: fmt.Sprintf("http://blobs.example/%d-%d", memory.ID, i),
			RemoteID:  fmt.Sprintf("%d-%d", memory.ID, i),
			SortOrder: i + 1,
		}
		require.NoError(t, r.CreateImage(image))
	}
	return memory
}

// TestExistsActiveForSlot 槽位检查只统计未归档的回忆
func TestExistsActiveForSlot(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	memory := createTestMemory(t, r, user.ID, "June", 2024, 5)

	exists, err := r.ExistsActiveForSlot(user.ID, "June", 2024)
	assert.NoError(t, err)
	assert.True(t, exists)

	// 其他槽位不受影响
	exists, err = r.ExistsActiveForSlot(user.ID, "July", 2024)
	assert.NoError(t, err)
	assert.False(t, exists)

	// 其他用户的同名槽位不受影响
	other := createTestUser(t, db, "bob")
	exists, err = r.ExistsActiveForSlot(other.ID, "June", 2024)
	assert.NoError(t, err)
	assert.False(t, exists)

	// 归档后槽位被释放
	now := time.Now()
	require.NoError(t, r.SetArchivedAt(memory.ID, &now))
	exists, err = r.ExistsActiveForSlot(user.ID, "June", 2024)
	assert.NoError(t, err)
	assert.False(t, exists)
}

// TestActiveSlotUniqueIndex 部分唯一索引拦截重复的未归档槽位
func TestActiveSlotUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	createTestMemory(t, r, user.ID, "June", 2024, 5)

	dup := &models.Memory{
		UserID:      user.ID,
		Title:       "Another",
		Description: "Duplicate slot",
		Month:       "June",
		Year:        2024,
	}
	err := r.CreateMemory(dup)
	assert.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

// TestActiveSlotUniqueIndex_ArchivedExcluded 归档的回忆不参与唯一约束
func TestActiveSlotUniqueIndex_ArchivedExcluded(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	first := createTestMemory(t, r, user.ID, "June", 2024, 5)
	now := time.Now()
	require.NoError(t, r.SetArchivedAt(first.ID, &now))

	// 同一槽位可以再创建
	second := createTestMemory(t, r, user.ID, "June", 2024, 7)
	assert.NotZero(t, second.ID)

	// 第二个还在时，恢复第一个会撞到索引
	err := r.SetArchivedAt(first.ID, nil)
	assert.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

// TestGetMemoryWithImages 图片按 sort_order 升序返回
func TestGetMemoryWithImages(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	memory := createTestMemory(t, r, user.ID, "June", 2024, 6)

	got, err := r.GetMemoryWithImages(memory.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 6)
	for i, image := range got.Images {
		assert.Equal(t, i+1, image.SortOrder)
	}

	_, err = r.GetMemoryWithImages(99999)
	assert.ErrorIs(t, err, ErrMemoryNotFound)
}

// TestDeleteMemoryCascade 删除回忆时图片记录一并消失
func TestDeleteMemoryCascade(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	memory := createTestMemory(t, r, user.ID, "June", 2024, 5)
	require.NoError(t, r.DeleteMemoryCascade(memory.ID))

	_, err := r.GetMemoryWithImages(memory.ID)
	assert.ErrorIs(t, err, ErrMemoryNotFound)

	count, err := r.CountImages(memory.ID)
	assert.NoError(t, err)
	assert.Zero(t, count)
}

// TestUpdateMemoryFields 只更新文案字段
func TestUpdateMemoryFields(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	memory := createTestMemory(t, r, user.ID, "June", 2024, 5)
	require.NoError(t, r.UpdateMemoryFields(memory.ID, "New title", "New description"))

	got, err := r.GetMemoryWithImages(memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "New description", got.Description)
	assert.Equal(t, "June", got.Month)
	assert.Equal(t, 2024, got.Year)
}

// TestGetImagesByIDs 只返回属于该回忆的图片
func TestGetImagesByIDs(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	first := createTestMemory(t, r, user.ID, "June", 2024, 5)
	second := createTestMemory(t, r, user.ID, "July", 2024, 5)

	got, err := r.GetMemoryWithImages(first.ID)
	require.NoError(t, err)
	otherGot, err := r.GetMemoryWithImages(second.ID)
	require.NoError(t, err)

	// 混入另一个回忆的图片 ID，不应被返回
	ids := []uint{got.Images[0].ID, got.Images[1].ID, otherGot.Images[0].ID}
	images, err := r.GetImagesByIDs(first.ID, ids)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	images, err = r.GetImagesByIDs(first.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, images)
}

// TestListActiveAndArchived 两个列表互不重叠
func TestListActiveAndArchived(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	first := createTestMemory(t, r, user.ID, "June", 2024, 5)
	second := createTestMemory(t, r, user.ID, "July", 2024, 5)
	_ = second

	now := time.Now()
	require.NoError(t, r.SetArchivedAt(first.ID, &now))

	active, err := r.ListActive(user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "July", active[0].Month)
	assert.Len(t, active[0].Images, 5)

	archived, err := r.ListArchived(user.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "June", archived[0].Month)
	assert.NotNil(t, archived[0].ArchivedAt)
}

// TestListImagesForUser 只返回未归档回忆的图片
func TestListImagesForUser(t *testing.T) {
	db := setupTestDB(t)
	r := NewRepository(db)
	user := createTestUser(t, db, "alice")

	active := createTestMemory(t, r, user.ID, "June", 2024, 5)
	archived := createTestMemory(t, r, user.ID, "July", 2024, 6)
	_ = active

	now := time.Now()
	require.NoError(t, r.SetArchivedAt(archived.ID, &now))

	images, err := r.ListImagesForUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, images, 5)

	// 其他用户看不到
	other := createTestUser(t, db, "bob")
	images, err = r.ListImagesForUser(other.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}
