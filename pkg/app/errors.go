package app

import "github.com/tokmz/realtime/pkg/errors"

// 预定义错误
var (
	ErrAppNotFound      = errors.New(2001, 404, "app not found", nil)
	ErrAppInvalid       = errors.New(2002, 400, "invalid app definition", nil)
	ErrAppInvalidConfig = errors.New(2003, 500, "invalid app manager config", nil)
	ErrAppLookup        = errors.New(2004, 500, "app lookup failed", nil)
)
