package client

import (
	"errors"
	"fmt"
)

// ErrTransport 网络不可达或响应不可解析
var ErrTransport = errors.New("网络错误")

// ServiceError 非2xx响应中携带结构化detail的服务端错误
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("service error (status %d)", e.StatusCode)
}

// Detail 提取可展示给用户的错误说明：优先服务端detail，否则返回fallback
func Detail(err error, fallback string) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Detail != "" {
		return svcErr.Detail
	}
	return fallback
}
