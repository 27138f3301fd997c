package constants

import "time"

// HTTP Client 连接池配置
const (
	BaseMaxIdleConns        = 100
	BaseMaxIdleConnsPerHost = 20
	BaseIdleConnTimeout     = 90 * time.Second
	DefaultKeepAlive        = 30 * time.Second
)

// HTTP 超时配置
const (
	DefaultDialTimeout           = 20 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 0 // unbounded by default; streams may be long
	DefaultExpectContinueTimeout = 2 * time.Second
)
