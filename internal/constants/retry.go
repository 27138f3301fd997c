package constants

import "time"

// 重试策略常量
const (
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 1 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	RetryBackoffFactor   = 2.0

	// 特定错误类型的重试延迟
	RateLimitRetryDelay          = 60 * time.Second // 429错误
	ServiceUnavailableRetryDelay = 30 * time.Second // 503错误
	GatewayErrorRetryDelay       = 15 * time.Second // 502/504错误
	DefaultErrorRetryDelay       = 5 * time.Second  // 其他错误
)

// 错误处理配置
const (
	MaxErrorMessageLength = 200
	ErrorContextMaxLength = 500
)
