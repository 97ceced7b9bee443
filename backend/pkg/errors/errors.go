package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ── 错误分类 ──
// Service 层返回以下错误（或包装它们），Handler 层据此映射 HTTP 状态码。

var (
	// ErrInvalidCredentials 用户不存在、账号停用或密码错误，对外统一提示
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	// ErrPasswordChangeRequired 强制改密状态下除修改密码外的一切操作均被拒绝
	ErrPasswordChangeRequired = errors.New("请先修改密码")
	// ErrForbidden 已认证但无权访问所请求的学校或操作
	ErrForbidden = errors.New("无权访问")
	// ErrNotFound 资源不存在（或不在当前学校范围内）
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 唯一性约束冲突
	ErrConflict = errors.New("资源已存在")
	// ErrServiceUnavailable 存储等基础设施故障，详情仅记录在服务端日志
	ErrServiceUnavailable = errors.New("服务暂不可用")
	// ErrConfiguration 启动配置缺失或非法，进程不得继续启动
	ErrConfiguration = errors.New("配置错误")
)

// ValidationError 输入校验错误，携带字段级详情
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError 创建单字段校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// IsValidation 判断 err 链中是否包含 ValidationError
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Unavailable 包装基础设施错误：errors.Is(err, ErrServiceUnavailable) 为真，同时保留原因供日志使用
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, cause)
}

// BusinessError 携带对外文案的业务错误，Unwrap 返回其所属分类
type BusinessError struct {
	kind error
	msg  string
}

// New 创建归属于 kind 分类的业务错误
func New(kind error, msg string) *BusinessError {
	return &BusinessError{kind: kind, msg: msg}
}

func (e *BusinessError) Error() string { return e.msg }

func (e *BusinessError) Unwrap() error { return e.kind }
