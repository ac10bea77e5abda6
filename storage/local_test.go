package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocal(t *testing.T) *LocalStorage {
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return s
}

// TestLocalStorage_RoundTrip 保存后可以读回
func TestLocalStorage_RoundTrip(t *testing.T) {
	s := setupLocal(t)
	ctx := context.Background()

	content := []byte("hello blobs")
	err := s.SaveWithContext(ctx, "abc123.png", bytes.NewReader(content), int64(len(content)), "image/png")
	require.NoError(t, err)

	exists, err := s.Exists(ctx, "abc123.png")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := s.GetWithContext(ctx, "abc123.png")
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestLocalStorage_Delete 删除不存在的对象也返回成功
func TestLocalStorage_Delete(t *testing.T) {
	s := setupLocal(t)
	ctx := context.Background()

	content := []byte("data")
	require.NoError(t, s.SaveWithContext(ctx, "to-delete", bytes.NewReader(content), int64(len(content)), "application/octet-stream"))

	require.NoError(t, s.DeleteWithContext(ctx, "to-delete"))
	exists, err := s.Exists(ctx, "to-delete")
	require.NoError(t, err)
	assert.False(t, exists)

	// 幂等
	assert.NoError(t, s.DeleteWithContext(ctx, "to-delete"))
	assert.NoError(t, s.DeleteWithContext(ctx, "never-existed"))
}

// TestLocalStorage_URL 访问地址经由 /blobs 路由
func TestLocalStorage_URL(t *testing.T) {
	s := setupLocal(t)
	assert.Equal(t, "http://localhost:8080/blobs/abc123.png", s.URL("abc123.png"))
}

// TestIsValidIdentifier 标识符白名单
func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"abc123", "photo.png", "a-b_c.webp", "550e8400-e29b-41d4-a716-446655440000"}
	for _, id := range valid {
		assert.True(t, IsValidIdentifier(id), id)
	}

	invalid := []string{"", "../etc/passwd", ".hidden", "a/b", "a\\b", "a..b", "-leading", string(make([]byte, 300))}
	for _, id := range invalid {
		assert.False(t, IsValidIdentifier(id), id)
	}
}

// TestLocalStorage_TraversalRejected 路径穿越被拒绝
func TestLocalStorage_TraversalRejected(t *testing.T) {
	s := setupLocal(t)
	ctx := context.Background()

	err := s.SaveWithContext(ctx, "../escape", bytes.NewReader([]byte("x")), 1, "text/plain")
	assert.Error(t, err)

	_, err = s.GetWithContext(ctx, "../escape")
	assert.Error(t, err)

	err = s.DeleteWithContext(ctx, "../../escape")
	assert.Error(t, err)
}
