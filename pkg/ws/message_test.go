package ws

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := map[string]ChannelKind{
		"news":                      ChannelPublic,
		"cache-news":                ChannelPublic,
		"private-room":              ChannelPrivate,
		"private-cache-room":        ChannelPrivate,
		"private-encrypted-room":    ChannelEncryptedPrivate,
		"presence-room":             ChannelPresence,
		"presence-cache-room":       ChannelPresence,
		"#server-to-user-42":        ChannelPublic,
		"private-encrypted-cache-x": ChannelEncryptedPrivate,
	}
	for channel, want := range tests {
		assert.Equal(t, want, KindOf(channel), channel)
	}

	assert.True(t, IsCachingChannel("private-encrypted-cache-x"))
	assert.True(t, IsCachingChannel("presence-cache-room"))
	assert.False(t, IsCachingChannel("presence-room"))
	assert.True(t, IsClientEvent("client-typing"))
	assert.False(t, IsClientEvent("pusher:ping"))
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`"abc"`, "abc", true},
		{`123`, "123", true},
		{`12345678901234567890`, "12345678901234567890", true},
		{`""`, "", false},
		{`0`, "", false},
		{`null`, "", false},
		{`false`, "", false},
		{``, "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeID(jsoniter.RawMessage(tt.raw))
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestDataToKilobytes(t *testing.T) {
	assert.InDelta(t, 1.0, DataToKilobytes([]byte(`"`+strings.Repeat("a", 1024)+`"`)), 1e-9)
	assert.InDelta(t, 7.0/1024, DataToKilobytes([]byte(`{"a":1}`)), 1e-9)
	assert.Zero(t, DataToKilobytes(nil))
}

func TestNameLength(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"", 0},
		{"presence-room", 13},
		{"café", 4},
		{"频道", 2},
		{"😀", 2},
		{"a😀b", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameLength(tt.name), tt.name)
	}
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"event":"client-x","channel":"c","data":{"k":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "client-x", msg.Event)
	assert.Equal(t, "c", msg.Channel)
	assert.JSONEq(t, `{"k":1}`, string(msg.Data))

	_, err = ParseMessage([]byte(`{"channel":"c"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = ParseMessage([]byte(`[`))
	assert.Error(t, err)
}

func TestGenerateSocketID(t *testing.T) {
	id := generateSocketID()
	parts := strings.Split(id, ".")
	require.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0])
	assert.NotEqual(t, id, generateSocketID())
}
