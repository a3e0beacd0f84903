package realtime

import "github.com/tokmz/realtime/pkg/errors"

// HTTP 接口错误（7000 段）
var (
	ErrInvalidConfig    = errors.New(7001, 500, "realtime: invalid config", nil)
	ErrAuthMissing      = errors.New(7002, 401, "Authentication parameters are missing.", nil)
	ErrAuthKey          = errors.New(7003, 401, "The auth_key does not match the app key.", nil)
	ErrAuthExpired      = errors.New(7004, 401, "The auth_timestamp is outside the allowed window.", nil)
	ErrAuthBodyMD5      = errors.New(7005, 401, "The body_md5 does not match the request body.", nil)
	ErrAuthSignature    = errors.New(7006, 401, "The auth_signature is invalid.", nil)
	ErrAppDisabled      = errors.New(7007, 403, "The app is not enabled.", nil)
	ErrInvalidEvent     = errors.New(7008, 400, "The event is invalid.", nil)
	ErrNotPresence      = errors.New(7009, 400, "The channel must be a presence channel.", nil)
	ErrQuotaExceeded    = errors.New(7010, 429, "The app is over its rate limit.", nil)
	ErrEventTooLarge    = errors.New(7011, 413, "The event payload is too large.", nil)
	ErrBatchTooLarge    = errors.New(7012, 400, "The batch contains too many events.", nil)
	ErrInvalidChannelOp = errors.New(7013, 400, "The requested info is not available for these channels.", nil)
)
