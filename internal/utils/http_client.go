package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient 构造带超时的共享HTTP客户端，所有后端请求复用同一连接池
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
