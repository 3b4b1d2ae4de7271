package errors

import "fmt"

// ServiceError 定义服务层错误
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// ErrorCode 定义错误码类型
type ErrorCode int

const (
	// 数据库错误
	ErrDatabase ErrorCode = iota + 1000
	ErrNotFound

	// 业务逻辑错误
	ErrInvalidInput
	ErrForbidden

	// 系统错误
	ErrInternal
)

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// New 创建新的服务错误
func New(code ErrorCode, message string) error {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) error {
	return &ServiceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetErrorCode 获取错误码，非服务错误一律按内部错误处理
func GetErrorCode(err error) ErrorCode {
	if se, ok := err.(*ServiceError); ok {
		return se.Code
	}
	return ErrInternal
}

// Is 判断错误是否携带指定错误码
func Is(err error, code ErrorCode) bool {
	se, ok := err.(*ServiceError)
	return ok && se.Code == code
}
