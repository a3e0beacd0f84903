package token

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/errors"
)

func TestSign(t *testing.T) {
	// Pusher 官方文档示例
	sig := ChannelSignature("278d425bdf160c739803", "7ad3773142a6692b25b8", "1234.1234", "private-foobar", "")
	assert.Equal(t, "278d425bdf160c739803:58df8b0c36d6982b82c3ecf6b4662e34fe8c25bba48f5369f135bf843651c3a4", sig)

	data := "1234.1234:private-foobar"
	assert.True(t, VerifyAuth("278d425bdf160c739803", "7ad3773142a6692b25b8", data, sig))
	assert.False(t, VerifyAuth("other", "7ad3773142a6692b25b8", data, sig))
	assert.False(t, VerifyAuth("278d425bdf160c739803", "wrong", data, sig))
	assert.False(t, VerifyAuth("278d425bdf160c739803", "7ad3773142a6692b25b8", data, "no-colon"))
}

func TestChannelSignatureWithData(t *testing.T) {
	channelData := `{"user_id":10,"user_info":{"name":"Mr. Channels"}}`
	sig := ChannelSignature("key", "secret", "1.1", "presence-foobar", channelData)

	_, hexSig, ok := strings.Cut(sig, ":")
	require.True(t, ok)
	assert.Equal(t, Sign("secret", "1.1:presence-foobar:"+channelData), hexSig)
}

func TestUserSignature(t *testing.T) {
	userData := `{"id":"1"}`
	sig := UserSignature("key", "secret", "1.2", userData)
	assert.True(t, VerifyAuth("key", "secret", "1.2::user::"+userData, sig))
}

func TestEncryptRoundTrip(t *testing.T) {
	master := make([]byte, 32)
	for i := range master {
		master[i] = byte(i)
	}
	encoded := base64.StdEncoding.EncodeToString(master)

	key, err := DecodeMasterKey(encoded)
	require.NoError(t, err)

	p, err := Encrypt("private-encrypted-x", `{"msg":"hi"}`, key)
	require.NoError(t, err)

	out, ok := Decrypt("private-encrypted-x", p, key)
	require.True(t, ok)
	assert.Equal(t, `{"msg":"hi"}`, out)

	_, ok = Decrypt("private-encrypted-y", p, key)
	assert.False(t, ok)
}

func TestDecodeMasterKeyInvalid(t *testing.T) {
	_, err := DecodeMasterKey("not base64!")
	assert.True(t, errors.Is(err, ErrInvalidMasterKey))

	_, err = DecodeMasterKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.True(t, errors.Is(err, ErrInvalidMasterKey))
}

func TestSharedSecretDeterministic(t *testing.T) {
	a := SharedSecret("private-encrypted-a", []byte("m"))
	b := SharedSecret("private-encrypted-a", []byte("m"))
	c := SharedSecret("private-encrypted-b", []byte("m"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
