package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := testWebDAVConnection(ctx, client, rootPath); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	if rootPath != "" {
		// 根目录不存在时尝试创建
		if err := client.MkdirAll(rootPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to ensure webdav root path '%s': %w", rootPath, err)
		}
	}

	return &WebDAVStorage{
		client:   client,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		rootPath: rootPath,
	}, nil
}

// testWebDAVConnection 测试 WebDAV 连接
func testWebDAVConnection(ctx context.Context, client *gowebdav.Client, rootPath string) error {
	done := make(chan error, 1)
	go func() {
		// 尝试读取根目录验证连接
		_, err := client.ReadDir("/")
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(identifier string) string {
	identifier = strings.TrimLeft(identifier, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + identifier
	}
	return "/" + identifier
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader, size int64, contentType string) error {
	if !IsValidIdentifier(identifier) {
		return fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	if err := s.client.Write(s.fullPath(identifier), data, 0644); err != nil {
		return fmt.Errorf("failed to write object '%s' to webdav: %w", identifier, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadCloser, error) {
	if !IsValidIdentifier(identifier) {
		return nil, fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	data, err := s.client.Read(s.fullPath(identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' from webdav: %w", identifier, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	if !IsValidIdentifier(identifier) {
		return fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	if err := s.client.Remove(s.fullPath(identifier)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object '%s' from webdav: %w", identifier, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	if !IsValidIdentifier(identifier) {
		return false, fmt.Errorf("invalid storage identifier: %s", identifier)
	}

	_, err := s.client.Stat(s.fullPath(identifier))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// URL 返回对象访问地址
func (s *WebDAVStorage) URL(identifier string) string {
	return s.baseURL + s.fullPath(identifier)
}

// Health 检查 WebDAV 连接
func (s *WebDAVStorage) Health(ctx context.Context) error {
	return testWebDAVConnection(ctx, s.client, s.rootPath)
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
