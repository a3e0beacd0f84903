package ws

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 协议事件名称
const (
	EventPing                  = "pusher:ping"
	EventPong                  = "pusher:pong"
	EventConnectionEstablished = "pusher:connection_established"
	EventSubscribe             = "pusher:subscribe"
	EventUnsubscribe           = "pusher:unsubscribe"
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventSubscriptionError     = "pusher:subscription_error"
	EventMemberAdded           = "pusher_internal:member_added"
	EventMemberRemoved         = "pusher_internal:member_removed"
	EventSignin                = "pusher:signin"
	EventSigninSuccess         = "pusher:signin_success"
	EventError                 = "pusher:error"
	EventCacheMiss             = "pusher:cache_miss"
)

// Message 入站消息
type Message struct {
	Event   string              `json:"event"`
	Channel string              `json:"channel,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// SubscribeData pusher:subscribe 的 data
type SubscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

// SigninData pusher:signin 的 data
type SigninData struct {
	UserData string `json:"user_data"`
	Auth     string `json:"auth"`
}

// OutMessage 出站消息，Data 为 nil 时省略
type OutMessage struct {
	Event   string `json:"event"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// ErrorData pusher:error 的 data
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SubscriptionErrorData pusher:subscription_error 的 data
type SubscriptionErrorData struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ServerErrorData presence 成员查询失败时的 data
type ServerErrorData struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// PresenceMember presence 频道成员
type PresenceMember struct {
	UserID   string `json:"user_id"`
	UserInfo any    `json:"user_info,omitempty"`
}

// Members 用户 id 到 user_info 的映射
type Members map[string]any

// presenceData subscription_succeeded 中的成员快照
type presenceData struct {
	Presence struct {
		IDs   []string `json:"ids"`
		Hash  Members  `json:"hash"`
		Count int      `json:"count"`
	} `json:"presence"`
}

func newPresenceData(members Members) presenceData {
	var p presenceData
	p.Presence.IDs = make([]string, 0, len(members))
	for id := range members {
		p.Presence.IDs = append(p.Presence.IDs, id)
	}
	p.Presence.Hash = members
	p.Presence.Count = len(members)
	return p
}

// ParseMessage 解析入站帧
func ParseMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, ErrInvalidMessage.WithError(err)
	}
	if msg.Event == "" {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}

// Encode 序列化出站消息
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// stringify 把 v 编码为 JSON 字符串，协议中部分 data 字段是字符串形式的 JSON
func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// errorMessage 构造 pusher:error
func errorMessage(channel string, code int, message string) OutMessage {
	return OutMessage{
		Event:   EventError,
		Channel: channel,
		Data:    ErrorData{Code: code, Message: message},
	}
}

// normalizeID 把数字或字符串形式的 id 统一为字符串
// 缺失、null、false、空串与 0 视为无效
func normalizeID(raw jsoniter.RawMessage) (string, bool) {
	text := strings.TrimSpace(string(raw))
	switch text {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}
	return text, true
}
