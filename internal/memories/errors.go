package memories

import "fmt"

// 单个回忆允许的图片数量区间
const (
	MinImages = 5
	MaxImages = 10
)

// ValidationError 输入不合法，在任何持久化或远端副作用之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AuthorizationError 调用者不是回忆的所有者，或回忆处于不允许该操作的状态
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// ConflictError (owner, month, year) 槽位已被未归档的回忆占用
type ConflictError struct {
	Month string
	Year  int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active memory already exists for %s %d", e.Month, e.Year)
}

// UploadError 上传到对象存储失败，Index 是失败文件在请求中的位置（0 起）
type UploadError struct {
	Index int
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload image %d: %v", e.Index+1, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// InvariantViolation 操作完成后图片数量会越出 [5,10]，整个本地事务回滚
type InvariantViolation struct {
	Count int
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("a memory must keep between %d and %d images, this change would leave %d", MinImages, MaxImages, e.Count)
}
