// Package token 提供 Pusher 协议使用的 HMAC 签名、校验与加密频道的载荷加密
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/tokmz/realtime/pkg/errors"
)

const nonceSize = 24

// 预定义错误
var (
	ErrInvalidMasterKey = errors.New(1301, 500, "encryption master key must be 32 bytes base64", nil)
	ErrEncryptFailed    = errors.New(1302, 500, "encrypt payload failed", nil)
)

// Sign 计算 HMAC-SHA256 十六进制签名
func Sign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 常量时间比较签名
func Verify(secret, data, signature string) bool {
	expected := Sign(secret, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ChannelSignature 频道订阅签名 "<key>:<hmac>"
// 签名内容为 socketID:channel，presence 频道追加 :channelData
func ChannelSignature(key, secret, socketID, channel, channelData string) string {
	data := socketID + ":" + channel
	if channelData != "" {
		data += ":" + channelData
	}
	return key + ":" + Sign(secret, data)
}

// UserSignature 用户登录签名 "<key>:<hmac>"
func UserSignature(key, secret, socketID, userData string) string {
	return key + ":" + Sign(secret, socketID+"::user::"+userData)
}

// VerifyAuth 校验客户端提交的 "<key>:<hmac>" 形式的 auth 字段
func VerifyAuth(key, secret, data, auth string) bool {
	gotKey, sig, ok := strings.Cut(auth, ":")
	if !ok || gotKey != key {
		return false
	}
	return Verify(secret, data, sig)
}

// DecodeMasterKey 解析 base64 编码的 32 字节主密钥
func DecodeMasterKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidMasterKey.WithError(err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidMasterKey
	}
	return key, nil
}

// SharedSecret 派生加密频道的共享密钥 SHA256(channel + masterKey)
func SharedSecret(channel string, masterKey []byte) []byte {
	h := sha256.New()
	h.Write([]byte(channel))
	h.Write(masterKey)
	return h.Sum(nil)
}

// EncryptedPayload 加密频道事件的 data 结构
type EncryptedPayload struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Encrypt 使用 secretbox 加密频道载荷
func Encrypt(channel, payload string, masterKey []byte) (*EncryptedPayload, error) {
	var key [32]byte
	copy(key[:], SharedSecret(channel, masterKey))

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, ErrEncryptFailed.WithError(err)
	}

	sealed := secretbox.Seal(nil, []byte(payload), &nonce, &key)
	return &EncryptedPayload{
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Decrypt 解密 Encrypt 的结果，主要供客户端 SDK 与测试使用
func Decrypt(channel string, p *EncryptedPayload, masterKey []byte) (string, bool) {
	nonceBytes, err := base64.StdEncoding.DecodeString(p.Nonce)
	if err != nil || len(nonceBytes) != nonceSize {
		return "", false
	}
	box, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return "", false
	}

	var (
		key   [32]byte
		nonce [nonceSize]byte
	)
	copy(key[:], SharedSecret(channel, masterKey))
	copy(nonce[:], nonceBytes)

	out, ok := secretbox.Open(nil, box, &nonce, &key)
	return string(out), ok
}
