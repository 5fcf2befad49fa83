package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType int

const (
	// ErrTypeUnknown 未知错误
	ErrTypeUnknown ErrorType = iota
	// ErrTypeSVN svn 命令相关错误
	ErrTypeSVN
	// ErrTypeParse 日志解析错误
	ErrTypeParse
	// ErrTypeReport 输出 sink 写入失败
	ErrTypeReport
	// ErrTypeConfig 配置相关错误
	ErrTypeConfig
	// ErrTypeValidation 验证错误
	ErrTypeValidation
	// ErrTypeTimeout 超时错误
	ErrTypeTimeout
	// ErrTypeIO 文件读写错误
	ErrTypeIO
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeSVN:
		return "svn"
	case ErrTypeParse:
		return "parse"
	case ErrTypeReport:
		return "report"
	case ErrTypeConfig:
		return "config"
	case ErrTypeValidation:
		return "validation"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeIO:
		return "io"
	}
	return "unknown"
}

// AppError 统一错误结构
type AppError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 支持 errors.Is 和 errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithSuggestion 添加解决建议
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// IsRetryable 检查错误是否可重试
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// New 创建新的 AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(errType ErrorType, cause error, format string, args ...interface{}) *AppError {
	return Wrap(errType, fmt.Sprintf(format, args...), cause)
}

// WrapRetryable 包装可重试错误。sink 失败属于这一类：解析器状态已重置，调用方可以继续输入。
func WrapRetryable(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// 预定义的常见错误
var (
	ErrSVNNotInstalled = New(ErrTypeSVN, "svn client not found").WithSuggestion("Install Subversion and make sure `svn` is on PATH, or set svn.binary in the config")
	ErrSVNTooOld       = New(ErrTypeSVN, "svn client does not support `log --diff`").WithSuggestion("Upgrade to Subversion 1.7 or newer")
	ErrSVNCommand      = New(ErrTypeSVN, "svn command failed")

	ErrConfigParse   = New(ErrTypeConfig, "failed to parse config file").WithSuggestion("Check the YAML syntax of svnlogstats.yaml")
	ErrInvalidConfig = New(ErrTypeConfig, "invalid configuration").WithSuggestion("Run `svnlogstats init-config` for a commented default")

	ErrInvalidInput = New(ErrTypeValidation, "invalid input")
)

// Is 检查是否为特定错误
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As 尝试转换为特定错误类型
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join, re-exported so callers importing this package need not alias std errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GetType 获取错误类型
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// IsType reports whether any error in err's chain is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsRetryable 检查错误是否可重试
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return false
}

// GetSuggestion 获取错误建议
func GetSuggestion(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Suggestion
	}
	return ""
}
