package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError 未收到任何响应（连接失败、超时、请求被取消）
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: no response from analytics service: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError Analytics Service 返回了非 2xx 状态，或响应体无法解析
type ServiceError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error // 解析失败时的原始错误
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: analytics service returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ValidationError 本地校验失败，请求不会发往网络
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound 服务端返回 404
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// UserMessage 把错误转换为面向用户的提示，区分"无法连接"和"服务拒绝"，不暴露底层传输细节
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	var se *ServiceError
	if errors.As(err, &se) {
		if se.Message == "" {
			return fmt.Sprintf("The analytics service rejected the request (status %d).", se.StatusCode)
		}
		return fmt.Sprintf("The analytics service rejected the request: %s", se.Message)
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Could not reach the analytics service. Please check your connection and try again."
	}

	return "Unexpected error. Please try again."
}

// Retryable 网络错误或服务端 5xx 可由用户重试；4xx 和本地校验错误重试无意义
func Retryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return false
}
