package ws

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	prefixPresence         = "presence-"
	prefixPrivate          = "private-"
	prefixEncryptedPrivate = "private-encrypted-"
	prefixClientEvent      = "client-"

	// serverToUserPrefix 以此为前缀的频道名表示发给某个用户的所有连接
	serverToUserPrefix = "#server-to-user-"
)

var cachingPrefixes = []string{
	"cache-",
	"private-cache-",
	"private-encrypted-cache-",
	"presence-cache-",
}

// ChannelKind 频道类型
type ChannelKind int

const (
	ChannelPublic ChannelKind = iota
	ChannelPrivate
	ChannelEncryptedPrivate
	ChannelPresence
)

// KindOf 按名称前缀判断频道类型
func KindOf(channel string) ChannelKind {
	switch {
	case strings.HasPrefix(channel, prefixPresence):
		return ChannelPresence
	case strings.HasPrefix(channel, prefixEncryptedPrivate):
		return ChannelEncryptedPrivate
	case strings.HasPrefix(channel, prefixPrivate):
		return ChannelPrivate
	default:
		return ChannelPublic
	}
}

// IsPresenceChannel presence 频道
func IsPresenceChannel(channel string) bool {
	return KindOf(channel) == ChannelPresence
}

// IsEncryptedPrivateChannel 加密私有频道
func IsEncryptedPrivateChannel(channel string) bool {
	return KindOf(channel) == ChannelEncryptedPrivate
}

// IsCachingChannel 名称符合缓存频道约定
func IsCachingChannel(channel string) bool {
	for _, p := range cachingPrefixes {
		if strings.HasPrefix(channel, p) {
			return true
		}
	}
	return false
}

// IsClientEvent 客户端事件以 client- 开头
func IsClientEvent(event string) bool {
	return strings.HasPrefix(event, prefixClientEvent)
}

// ServerToUserChannel 发给用户所有连接的合成频道名
func ServerToUserChannel(userID string) string {
	return serverToUserPrefix + userID
}

// userFromChannel 解析合成频道中的用户 id
func userFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, serverToUserPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, serverToUserPrefix), true
}

// generateSocketID 两个 [0, 1e10] 的随机整数以 "." 连接
func generateSocketID() string {
	const max = 10_000_000_000
	return strconv.FormatInt(rand.Int64N(max+1), 10) + "." + strconv.FormatInt(rand.Int64N(max+1), 10)
}

// DataToKilobytes 计算事件数据大小（KB）
// JSON 字符串按解码后的字节数计算，其他类型按序列化长度计算
func DataToKilobytes(raw []byte) float64 {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return float64(len(s)) / 1024
		}
	}
	return float64(len(raw)) / 1024
}

// NameLength 频道名与事件名的长度，按 UTF-16 码元计，与客户端 SDK 的计数一致
// 基本平面外的字符（如 emoji）计为 2
func NameLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
