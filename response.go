package realtime

import (
	"github.com/gin-gonic/gin"

	"github.com/tokmz/realtime/pkg/errors"
)

// ErrorResponse REST 接口的错误响应
type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// abortWithError 按 HttpCode 写出错误，非业务错误统一为 500
func abortWithError(c *gin.Context, err error) {
	e := errors.From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HttpCode, ErrorResponse{Code: e.Code, Error: e.Message})
}

// ChannelInfo 频道查询结果，未请求的字段省略
type ChannelInfo struct {
	Occupied          *bool `json:"occupied,omitempty"`
	SubscriptionCount *int  `json:"subscription_count,omitempty"`
	UserCount         *int  `json:"user_count,omitempty"`
}

// ChannelsResponse GET /channels 的响应
type ChannelsResponse struct {
	Channels map[string]ChannelInfo `json:"channels"`
}

// UserInfo presence 频道中的用户
type UserInfo struct {
	ID string `json:"id"`
}

// UsersResponse GET /channels/:channel/users 的响应
type UsersResponse struct {
	Users []UserInfo `json:"users"`
}
