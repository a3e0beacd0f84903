package errors

/*
	内置常用错误码（1000 段）
	其余各包在自己的 errors.go 中按号段声明：
	1100 config / 1200 tracing / 1300 token / 1400 orm / 1500 metrics
	2000 app / 3000 cache / 4000 webhook / 5000 ws / 6000 ratelimit / 7000 api
*/

var (
	// ErrServer 服务器错误
	ErrServer = New(1000, 500, "internal server error", nil)
	// ErrBadRequest 客户端请求错误
	ErrBadRequest = New(1001, 400, "bad request", nil)
	// ErrUnauthorized 未授权
	ErrUnauthorized = New(1002, 401, "unauthorized", nil)
	// ErrForbidden 禁止访问
	ErrForbidden = New(1003, 403, "forbidden", nil)
	// ErrNotFound 资源不存在
	ErrNotFound = New(1004, 404, "not found", nil)
	// ErrPayloadTooLarge 请求体过大
	ErrPayloadTooLarge = New(1005, 413, "payload too large", nil)
	// ErrTooManyRequests 请求过于频繁
	ErrTooManyRequests = New(1006, 429, "too many requests", nil)
	// ErrUnavailable 服务不可用（关闭中）
	ErrUnavailable = New(1007, 503, "server is closing", nil)
)
