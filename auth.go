package realtime

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/errors"
	"github.com/tokmz/realtime/pkg/token"
)

// authTimestampWindow 请求时间戳允许的偏差
const authTimestampWindow = 600 * time.Second

const (
	appContextKey = "realtime.app"
	authVersion   = "1.0"
)

// SignRequest 为 REST 请求生成签名参数
// 返回的参数已包含 query 中原有的键，可直接作为请求的查询串
func SignRequest(a *app.App, method, path string, query url.Values, body []byte, now time.Time) url.Values {
	signed := url.Values{}
	for k, v := range query {
		signed[k] = append([]string(nil), v...)
	}
	signed.Set("auth_key", a.Key)
	signed.Set("auth_timestamp", strconv.FormatInt(now.Unix(), 10))
	signed.Set("auth_version", authVersion)
	if len(body) > 0 {
		signed.Set("body_md5", bodyMD5(body))
	}
	signed.Set("auth_signature", token.Sign(a.Secret, signingString(method, path, signed)))
	return signed
}

// signingString METHOD\nPATH\n 按键名排序的 k=v，不含 auth_signature
func signingString(method, path string, query url.Values) string {
	params := make(map[string]string, len(query))
	keys := make([]string, 0, len(query))
	for k := range query {
		lk := strings.ToLower(k)
		if lk == "auth_signature" {
			continue
		}
		if _, ok := params[lk]; !ok {
			keys = append(keys, lk)
		}
		params[lk] = query.Get(k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

func bodyMD5(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

// authenticate 查找 :appId 对应的应用并校验请求签名
func (s *Server) authenticate(now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := s.apps.FindByID(c.Request.Context(), c.Param("appId"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !a.IsEnabled() {
			abortWithError(c, ErrAppDisabled)
			return
		}

		body, err := readBody(c)
		if err != nil {
			abortWithError(c, errors.ErrPayloadTooLarge.WithError(err))
			return
		}
		if err := verifyRequest(a, c.Request.Method, c.Request.URL.Path, c.Request.URL.Query(), body, now()); err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(appContextKey, a)
		c.Next()
	}
}

// verifyRequest 依次检查 auth_key、时间戳、body_md5 与签名
func verifyRequest(a *app.App, method, path string, query url.Values, body []byte, now time.Time) error {
	key := query.Get("auth_key")
	ts := query.Get("auth_timestamp")
	sig := query.Get("auth_signature")
	if key == "" || ts == "" || sig == "" {
		return ErrAuthMissing
	}
	if key != a.Key {
		return ErrAuthKey
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrAuthExpired
	}
	if d := now.Sub(time.Unix(unix, 0)); d > authTimestampWindow || d < -authTimestampWindow {
		return ErrAuthExpired
	}

	if len(body) > 0 && query.Get("body_md5") != bodyMD5(body) {
		return ErrAuthBodyMD5
	}

	if !token.Verify(a.Secret, signingString(method, path, query), sig) {
		return ErrAuthSignature
	}
	return nil
}

// readBody 读取请求体后放回，供后续绑定
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func appFrom(c *gin.Context) *app.App {
	return c.MustGet(appContextKey).(*app.App)
}
