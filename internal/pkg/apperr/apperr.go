package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误级别：决定 HTTP 状态码的映射
type Kind int

const (
	// KindClient 调用方错误（非法入参、资源不存在等）→ 400
	KindClient Kind = iota
	// KindPermission 权限/余额不足 → 403
	KindPermission
	// KindUpstream 上游或持久化失败 → 502
	KindUpstream
)

// Error 业务错误：数值码 + 级别 + 对外消息 + 细节
type Error struct {
	Code    int
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus 级别到 HTTP 状态码的映射
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindPermission:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// MissingField 必填字段缺失
func MissingField(field string) *Error {
	return &Error{
		Code:    40001,
		Kind:    KindClient,
		Message: fmt.Sprintf("Missing required field: %s", field),
	}
}

// UnsupportedModel 提供商/模型不在目录中
func UnsupportedModel(provider, model string) *Error {
	return &Error{
		Code:    40002,
		Kind:    KindClient,
		Message: fmt.Sprintf("The %s provider or %s model doesn't exist.", provider, model),
	}
}

// ChatNotFound 会话不存在或已删除
func ChatNotFound() *Error {
	return &Error{
		Code:    40003,
		Kind:    KindClient,
		Message: "Chat is invalid (or) already deleted.",
	}
}

// ConversationMismatch 操作目标不是最新一轮对话
func ConversationMismatch() *Error {
	return &Error{
		Code:    40004,
		Kind:    KindClient,
		Message: "Recent conversationId mismatch.",
	}
}

// UserNotFound 用户积分账户不存在
func UserNotFound() *Error {
	return &Error{
		Code:    40005,
		Kind:    KindClient,
		Message: "User not found.",
	}
}

// RegenerateLimit 重新生成次数已达上限
func RegenerateLimit() *Error {
	return &Error{
		Code:    40006,
		Kind:    KindClient,
		Message: "User has reached regenerate limit.",
	}
}

// InsufficientCredits 余额低于模型门槛
func InsufficientCredits() *Error {
	return &Error{
		Code:    40301,
		Kind:    KindPermission,
		Message: "Insufficient credits",
	}
}

// UpstreamRequestFailed AI 提供商调用失败
func UpstreamRequestFailed(err error) *Error {
	return &Error{
		Code:    50201,
		Kind:    KindUpstream,
		Message: "AI Request failed",
		Err:     err,
	}
}

// PersistenceFailed 持久化失败（扣费后写入失败也走这里）
func PersistenceFailed(err error) *Error {
	return &Error{
		Code:    50202,
		Kind:    KindUpstream,
		Message: "Please try again in sometime.",
		Err:     err,
	}
}

// UnknownModel 模型不在计价表中
func UnknownModel(model string) *Error {
	return &Error{
		Code:    50203,
		Kind:    KindUpstream,
		Message: "Invalid Model",
		Detail:  model,
	}
}

// From 将任意 error 归一化为 *Error，未知错误按持久化失败处理
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return PersistenceFailed(err)
}
