// Package errors 提供统一的错误定义
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 配置错误 (2xxx)
	CodeSettingsInvalid ErrorCode = "2001"
	CodeSyncNotEligible ErrorCode = "2002"

	// 并发错误 (3xxx)
	CodeSyncAlreadyInProgress ErrorCode = "3001"

	// 上游服务错误 (4xxx)
	CodeEmbeddingProvider  ErrorCode = "4001"
	CodeGenerationProvider ErrorCode = "4002"
	CodeContentSource      ErrorCode = "4003"
	CodePublishFailed      ErrorCode = "4004"

	// 存储错误 (5xxx)
	CodeStorageUnavailable ErrorCode = "5001"
	CodeInvalidVector      ErrorCode = "5002"
	CodeStoreClosed        ErrorCode = "5003"
	CodeEmptyText          ErrorCode = "5004"
	CodeDatabaseError      ErrorCode = "5005"
	CodeCacheError         ErrorCode = "5006"

	// 超时 (6xxx)
	CodeTimeout ErrorCode = "6001"
)

// Kind 错误分类
type Kind string

const (
	KindProvider    Kind = "provider"
	KindStorage     Kind = "storage"
	KindConfig      Kind = "config"
	KindConcurrency Kind = "concurrency"
	KindTimeout     Kind = "timeout"
	KindInternal    Kind = "internal"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，使预定义错误在 Wrap/WithDetail 之后仍可被 errors.Is 识别
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Kind 返回错误分类
func (e *AppError) Kind() Kind {
	return codeToKind(e.Code)
}

// Clone 复制错误，预定义错误不可直接修改
func (e *AppError) Clone() *AppError {
	c := *e
	return &c
}

// WithDetail 添加详细信息（返回副本）
func (e *AppError) WithDetail(detail string) *AppError {
	c := e.Clone()
	c.Detail = detail
	return c
}

// WithError 添加底层错误（返回副本）
func (e *AppError) WithError(err error) *AppError {
	c := e.Clone()
	c.Err = err
	return c
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeSettingsInvalid, CodeEmptyText, CodeInvalidVector:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSyncAlreadyInProgress:
		return http.StatusConflict
	case CodeSyncNotEligible:
		return http.StatusPreconditionFailed
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeEmbeddingProvider, CodeGenerationProvider, CodeContentSource, CodePublishFailed:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeServiceUnavailable, CodeStorageUnavailable, CodeStoreClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeToKind(code ErrorCode) Kind {
	switch code {
	case CodeEmbeddingProvider, CodeGenerationProvider, CodeContentSource, CodePublishFailed:
		return KindProvider
	case CodeStorageUnavailable, CodeInvalidVector, CodeStoreClosed, CodeEmptyText, CodeDatabaseError, CodeCacheError:
		return KindStorage
	case CodeInvalidParam, CodeSettingsInvalid, CodeSyncNotEligible:
		return KindConfig
	case CodeSyncAlreadyInProgress:
		return KindConcurrency
	case CodeTimeout:
		return KindTimeout
	default:
		return KindInternal
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrSettingsInvalid = New(CodeSettingsInvalid, "invalid repository sync settings")
	ErrSyncNotEligible = New(CodeSyncNotEligible, "repository is not eligible for sync")

	ErrSyncAlreadyInProgress = New(CodeSyncAlreadyInProgress, "sync already in progress")

	ErrEmbeddingProvider  = New(CodeEmbeddingProvider, "embedding provider failed")
	ErrGenerationProvider = New(CodeGenerationProvider, "generation provider failed")
	ErrContentSource      = New(CodeContentSource, "content source failed")
	ErrPublishFailed      = New(CodePublishFailed, "publish failed")

	ErrStorageUnavailable = New(CodeStorageUnavailable, "vector storage unavailable")
	ErrInvalidVector      = New(CodeInvalidVector, "invalid vector")
	ErrStoreClosed        = New(CodeStoreClosed, "vector store closed")
	ErrEmptyText          = New(CodeEmptyText, "text must not be empty")
	ErrDatabase           = New(CodeDatabaseError, "database error")

	ErrTimeout = New(CodeTimeout, "operation timed out")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, CodeTimeout, "operation timed out")
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// KindOf 返回任意错误的分类
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsAppError(err).Kind()
}

// CodeOf 返回任意错误的错误码
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	return AsAppError(err).Code
}
