package config

import "github.com/tokmz/realtime/pkg/errors"

// 配置包专用错误定义
var (
	// ErrConfigNotFound 配置文件未找到
	ErrConfigNotFound = errors.New(1101, 500, "config file not found", nil)
	// ErrConfigReadFailed 配置读取失败
	ErrConfigReadFailed = errors.New(1102, 500, "config read failed", nil)
	// ErrConfigDecodeFailed 配置反序列化失败
	ErrConfigDecodeFailed = errors.New(1103, 500, "config decode failed", nil)
)
