package xerrors

import (
	"fmt"
	"time"
)

// NetworkError 网络类错误，携带上游返回的状态码。
// 属于瞬时故障，可以安全重试。
type NetworkError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// NewNetworkError 创建网络错误。
func NewNetworkError(statusCode int, message string) *NetworkError {
	return &NetworkError{StatusCode: statusCode, Message: message}
}

// ValidationError 参数校验错误，携带非法字段名。
// 重试不会改变结果，必须快速失败。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError 创建校验错误。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TimeoutError 超时错误，携带配置的超时时间。
// 属于瞬时故障，可以安全重试。
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// NewTimeoutError 创建超时错误。
func NewTimeoutError(timeout time.Duration) *TimeoutError {
	return &TimeoutError{Timeout: timeout}
}

// Retryable 判断错误是否可重试。
//
// 分类规则：
//   - 校验错误：不可重试（快速失败）
//   - 网络错误、超时错误：可重试
//   - 其他被包装操作透传的错误：默认可重试
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	return !As(err, &ve)
}
