package errorx

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind int

const (
	// KindValidation 本地校验错误（非法状态迁移、数量越界、缺少必选项），不发起网络请求
	KindValidation Kind = iota
	// KindUnauthorized 鉴权失败（401），触发全局会话销毁
	KindUnauthorized
	// KindConflict 服务端业务拒绝（4xx，如库存不足），消息原样透传给用户
	KindConflict
	// KindTransient 网络/服务端临时故障（超时、5xx），可重试
	KindTransient
)

// 业务错误定义
var (
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrQtyOutOfRange      = errors.New("dispatch quantity out of range")
	ErrPartnerRequired    = errors.New("delivery partner is required")
	ErrInvoiceAckRequired = errors.New("invoice confirmation is required")
	ErrSubmitInFlight     = errors.New("a request is already in flight")
	ErrAdminOnly          = errors.New("admin permission required")
	ErrWorkflowState      = errors.New("operation not allowed in current workflow state")
)

// Error 客户端错误结构（包含分类与可重试标记）
type Error struct {
	Kind       Kind   `json:"kind"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
	cause      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// Validation 创建本地校验错误
func Validation(cause error, message string) *Error {
	return &Error{
		Kind:      KindValidation,
		Code:      400,
		Message:   message,
		Retryable: false,
		cause:     cause,
	}
}

// Unauthorized 创建鉴权失败错误
func Unauthorized(message string) *Error {
	return &Error{
		Kind:      KindUnauthorized,
		Code:      401,
		Message:   message,
		Retryable: false,
	}
}

// Conflict 创建服务端业务拒绝错误（message 为服务端原文）
func Conflict(code int, message string) *Error {
	return &Error{
		Kind:      KindConflict,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// Transient 创建可重试错误（网络错误、临时故障等）
func Transient(cause error, message string) *Error {
	return &Error{
		Kind:       KindTransient,
		Code:       500,
		Message:    message,
		Retryable:  true,
		DevDetails: fmt.Sprintf("%+v", cause),
		cause:      cause,
	}
}

// Wrap 包装错误（已是 Error 类型则直接返回）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Kind:       KindTransient,
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
		cause:      err,
	}
}

// IsKind 判断错误分类
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
