package validator

import (
	"bytes"
	"image"
	"net/http"

	// 注册常见图片解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsImageBytes 通过内容嗅探判断是否为允许的图片类型
// 返回 (是否为图片, MIME 类型)。
func IsImageBytes(data []byte) (bool, string) {
	if len(data) == 0 {
		return false, ""
	}
	mimeType := http.DetectContentType(data)
	return allowedImageMimeTypes[mimeType], mimeType
}

// GetImageDimensions 解析图片宽高，解析失败时返回 (0, 0)
func GetImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
