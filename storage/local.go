package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// validIdentifier 标识符白名单，防止路径拼接出问题
var validIdentifier = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// IsValidIdentifier 检查标识符是否合法
func IsValidIdentifier(identifier string) bool {
	if identifier == "" || len(identifier) > 255 {
		return false
	}
	if strings.Contains(identifier, "..") {
		return false
	}
	return validIdentifier.MatchString(identifier)
}

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	absBasePath string
	baseURL     string
}

// NewLocalStorage 创建本地存储提供者
// baseURL 用于拼接 /blobs/{identifier} 形式的访问地址。
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
		baseURL:     strings.TrimRight(baseURL, "/"),
	}, nil
}

// SaveWithContext 保存文件到本地存储
func (s *LocalStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader, size int64, contentType string) error {
	if !IsValidIdentifier(identifier) {
		return fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	dstPath := filepath.Join(s.absBasePath, identifier)

	if !strings.HasPrefix(dstPath, s.absBasePath) {
		return fmt.Errorf("invalid file path, potential directory traversal: %s", identifier)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}

	return nil
}

// GetWithContext 从本地存储获取文件
func (s *LocalStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadCloser, error) {
	if !IsValidIdentifier(identifier) {
		return nil, fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	fullPath := filepath.Join(s.absBasePath, identifier)

	// 防止目录遍历攻击
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return nil, fmt.Errorf("invalid file path, potential directory traversal: %s", identifier)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", identifier)
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", identifier, err)
	}

	return file, nil
}

// DeleteWithContext 从本地存储删除文件
func (s *LocalStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	if !IsValidIdentifier(identifier) {
		return fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	fullPath := filepath.Join(s.absBasePath, identifier)
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return fmt.Errorf("invalid file path: %s", identifier)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			// 已经不存在视为删除成功
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", identifier, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	if !IsValidIdentifier(identifier) {
		return false, fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	fullPath := filepath.Join(s.absBasePath, identifier)
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return false, fmt.Errorf("invalid file path: %s", identifier)
	}

	_, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// URL 返回通过本服务访问的地址
func (s *LocalStorage) URL(identifier string) string {
	return s.baseURL + "/blobs/" + identifier
}

// Health 检查存储目录可用性
func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.Stat(s.absBasePath)
	return err
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}
