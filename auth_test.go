package realtime

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/errors"
)

func TestSigningString(t *testing.T) {
	q := url.Values{
		"auth_signature": {"ignored"},
		"Auth_Key":       {"key"},
		"b":              {"2"},
		"a":              {"1"},
	}
	got := signingString("post", "/apps/1/events", q)
	assert.Equal(t, "POST\n/apps/1/events\na=1&auth_key=key&b=2", got)
}

func TestVerifyRequest(t *testing.T) {
	a := &app.App{ID: "1", Key: "key", Secret: "secret"}
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"name":"e"}`)
	path := "/apps/1/events"

	signed := SignRequest(a, http.MethodPost, path, url.Values{"extra": {"v"}}, body, now)
	require.NoError(t, verifyRequest(a, http.MethodPost, path, signed, body, now))

	tests := []struct {
		name   string
		mutate func(q url.Values) ([]byte, time.Time, string)
		want   error
	}{
		{
			name: "missing signature",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				q.Del("auth_signature")
				return body, now, path
			},
			want: ErrAuthMissing,
		},
		{
			name: "wrong key",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				q.Set("auth_key", "other")
				return body, now, path
			},
			want: ErrAuthKey,
		},
		{
			name: "expired",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				return body, now.Add(authTimestampWindow + time.Second), path
			},
			want: ErrAuthExpired,
		},
		{
			name: "from the future",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				return body, now.Add(-authTimestampWindow - time.Second), path
			},
			want: ErrAuthExpired,
		},
		{
			name: "malformed timestamp",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				q.Set("auth_timestamp", "soon")
				return body, now, path
			},
			want: ErrAuthExpired,
		},
		{
			name: "body changed",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				return []byte(`{"name":"x"}`), now, path
			},
			want: ErrAuthBodyMD5,
		},
		{
			name: "path changed",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				return body, now, "/apps/2/events"
			},
			want: ErrAuthSignature,
		},
		{
			name: "query changed",
			mutate: func(q url.Values) ([]byte, time.Time, string) {
				q.Set("extra", "w")
				return body, now, path
			},
			want: ErrAuthSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			for k, v := range signed {
				q[k] = append([]string(nil), v...)
			}
			b, at, p := tt.mutate(q)
			err := verifyRequest(a, http.MethodPost, p, q, b, at)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSignRequestWithoutBody(t *testing.T) {
	a := &app.App{ID: "1", Key: "key", Secret: "secret"}
	now := time.Unix(1_700_000_000, 0)

	signed := SignRequest(a, http.MethodGet, "/apps/1/channels", nil, nil, now)
	assert.Empty(t, signed.Get("body_md5"))
	assert.Equal(t, "key", signed.Get("auth_key"))
	assert.Equal(t, strconv.FormatInt(now.Unix(), 10), signed.Get("auth_timestamp"))
	assert.Equal(t, authVersion, signed.Get("auth_version"))
	assert.NoError(t, verifyRequest(a, http.MethodGet, "/apps/1/channels", signed, nil, now))
}
