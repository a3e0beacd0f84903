package realtime

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/errors"
	"github.com/tokmz/realtime/pkg/ratelimit"
	"github.com/tokmz/realtime/pkg/token"
	"github.com/tokmz/realtime/pkg/ws"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventRequest POST /events 的请求体，batch_events 中的单个事件结构相同
type EventRequest struct {
	Name     string              `json:"name"`
	Data     jsoniter.RawMessage `json:"data"`
	Channel  string              `json:"channel,omitempty"`
	Channels []string            `json:"channels,omitempty"`
	SocketID string              `json:"socket_id,omitempty"`
}

// BatchEventsRequest POST /batch_events 的请求体
type BatchEventsRequest struct {
	Batch []EventRequest `json:"batch"`
}

// readLimited 扣减读请求配额
func (s *Server) readLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		a := appFrom(c)
		resp, err := s.limiter.ConsumeReadRequestsPoints(c.Request.Context(), 1, a)
		if !s.allowed(c, a, resp, err) {
			return
		}
		c.Next()
	}
}

// allowed 写出配额响应头，超额或限流器出错时中止请求
func (s *Server) allowed(c *gin.Context, a *app.App, resp *ratelimit.Response, err error) bool {
	if err != nil {
		s.log.WarnContext(c.Request.Context(), "rate limiter failed",
			zap.String("app_id", a.ID),
			zap.Error(err),
		)
		abortWithError(c, ErrQuotaExceeded.WithError(err))
		return false
	}
	if resp.Limit >= 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(resp.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(resp.Remaining))
	}
	if !resp.CanContinue {
		c.Header("Retry-After", strconv.Itoa(int(resp.ResetIn.Seconds())+1))
		abortWithError(c, ErrQuotaExceeded)
		return false
	}
	return true
}

func (s *Server) channels(c *gin.Context) {
	a := appFrom(c)
	ctx := c.Request.Context()
	prefix := c.Query("filter_by_prefix")
	info := infoFields(c.Query("info"))

	if info["user_count"] && !strings.HasPrefix(prefix, "presence-") {
		abortWithError(c, ErrInvalidChannelOp.WithMessage("user_count may only be requested for presence channels."))
		return
	}

	counts, err := s.adapter.GetChannelsWithSocketsCount(ctx, a.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := ChannelsResponse{Channels: make(map[string]ChannelInfo, len(counts))}
	for ch, n := range counts {
		if n == 0 || !strings.HasPrefix(ch, prefix) {
			continue
		}
		var ci ChannelInfo
		if info["subscription_count"] {
			ci.SubscriptionCount = &n
		}
		if info["user_count"] {
			users, err := s.adapter.GetChannelMembersCount(ctx, a.ID, ch)
			if err != nil {
				abortWithError(c, err)
				return
			}
			ci.UserCount = &users
		}
		resp.Channels[ch] = ci
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) channel(c *gin.Context) {
	a := appFrom(c)
	ctx := c.Request.Context()
	ch := c.Param("channel")

	n, err := s.adapter.GetChannelSocketsCount(ctx, a.ID, ch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	occupied := n > 0
	ci := ChannelInfo{Occupied: &occupied, SubscriptionCount: &n}
	if ws.IsPresenceChannel(ch) {
		users, err := s.adapter.GetChannelMembersCount(ctx, a.ID, ch)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ci.UserCount = &users
	}
	c.JSON(http.StatusOK, ci)
}

func (s *Server) channelUsers(c *gin.Context) {
	a := appFrom(c)
	ch := c.Param("channel")
	if !ws.IsPresenceChannel(ch) {
		abortWithError(c, ErrNotPresence)
		return
	}

	members, err := s.adapter.GetChannelMembers(c.Request.Context(), a.ID, ch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	resp := UsersResponse{Users: make([]UserInfo, 0, len(ids))}
	for _, id := range ids {
		resp.Users = append(resp.Users, UserInfo{ID: id})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) events(c *gin.Context) {
	a := appFrom(c)
	var req EventRequest
	if err := bindJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	channels, err := validateEvent(a, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp, err := s.limiter.ConsumeBackendEventPoints(c.Request.Context(), 1, a)
	if !s.allowed(c, a, resp, err) {
		return
	}

	if err := s.publish(c.Request.Context(), a, &req, channels); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) batchEvents(c *gin.Context) {
	a := appFrom(c)
	var req BatchEventsRequest
	if err := bindJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	if len(req.Batch) == 0 {
		abortWithError(c, ErrInvalidEvent.WithMessage("The batch must contain at least one event."))
		return
	}
	if a.MaxEventBatchSize > 0 && len(req.Batch) > a.MaxEventBatchSize {
		abortWithError(c, ErrBatchTooLarge.WithMessage("Cannot batch-send more than "+strconv.Itoa(a.MaxEventBatchSize)+" messages at once."))
		return
	}

	targets := make([][]string, len(req.Batch))
	for i := range req.Batch {
		channels, err := validateEvent(a, &req.Batch[i])
		if err != nil {
			abortWithError(c, err)
			return
		}
		targets[i] = channels
	}

	resp, err := s.limiter.ConsumeBackendEventPoints(c.Request.Context(), len(req.Batch), a)
	if !s.allowed(c, a, resp, err) {
		return
	}

	results := make([]gin.H, len(req.Batch))
	for i := range req.Batch {
		if err := s.publish(c.Request.Context(), a, &req.Batch[i], targets[i]); err != nil {
			abortWithError(c, err)
			return
		}
		results[i] = gin.H{}
	}
	c.JSON(http.StatusOK, gin.H{"batch": results})
}

func (s *Server) terminateUserConnections(c *gin.Context) {
	a := appFrom(c)
	if err := s.adapter.TerminateUserConnections(c.Request.Context(), a.ID, c.Param("userId")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// publish 向每个频道广播事件，缓存频道同时写入最后一条载荷
func (s *Server) publish(ctx context.Context, a *app.App, req *EventRequest, channels []string) error {
	data := dataString(req.Data)
	for _, ch := range channels {
		payload := data
		if ws.IsEncryptedPrivateChannel(ch) && a.EncryptionMasterKey != "" && !isEncryptedPayload(data) {
			encrypted, err := encryptPayload(a, ch, data)
			if err != nil {
				return err
			}
			payload = encrypted
		}

		msg, err := ws.Encode(ws.OutMessage{Event: req.Name, Channel: ch, Data: payload})
		if err != nil {
			return errors.ErrServer.WithError(err)
		}
		if err := s.adapter.Send(ctx, a.ID, ch, msg, req.SocketID); err != nil {
			return err
		}

		if ws.IsCachingChannel(ch) {
			if err := s.cache.Set(ctx, ws.CacheMissKey(a.ID, ch), string(msg), s.config.CacheMissTTL); err != nil {
				s.log.WarnContext(ctx, "store cached event failed",
					zap.String("app_id", a.ID),
					zap.String("channel", ch),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// validateEvent 按应用限制检查事件，返回目标频道
func validateEvent(a *app.App, req *EventRequest) ([]string, error) {
	channels := req.Channels
	if req.Channel != "" {
		channels = append([]string{req.Channel}, channels...)
	}
	if len(channels) == 0 {
		return nil, ErrInvalidEvent.WithMessage("The channel or channels field is required.")
	}
	if a.MaxEventChannelsAtOnce > 0 && len(channels) > a.MaxEventChannelsAtOnce {
		return nil, ErrInvalidEvent.WithMessage("Cannot broadcast to more than " + strconv.Itoa(a.MaxEventChannelsAtOnce) + " channels at once.")
	}
	for _, ch := range channels {
		if ch == "" || a.MaxChannelNameLength > 0 && ws.NameLength(ch) > a.MaxChannelNameLength {
			return nil, ErrInvalidEvent.WithMessage("The channel name is invalid or longer than " + strconv.Itoa(a.MaxChannelNameLength) + " characters.")
		}
	}

	if req.Name == "" {
		return nil, ErrInvalidEvent.WithMessage("The name field is required.")
	}
	if a.MaxEventNameLength > 0 && ws.NameLength(req.Name) > a.MaxEventNameLength {
		return nil, ErrInvalidEvent.WithMessage("Event name is too long. Maximum allowed size is " + strconv.Itoa(a.MaxEventNameLength) + ".")
	}
	if a.MaxEventPayloadInKb > 0 && ws.DataToKilobytes(req.Data) > a.MaxEventPayloadInKb {
		return nil, ErrEventTooLarge.WithMessage("The event data should be less than " + strconv.FormatFloat(a.MaxEventPayloadInKb, 'f', -1, 64) + " KB.")
	}
	return channels, nil
}

func bindJSON(c *gin.Context, v any) error {
	body, err := c.GetRawData()
	if err != nil {
		return errors.ErrPayloadTooLarge.WithError(err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.ErrBadRequest.WithMessage("The request body must be valid JSON.").WithError(err)
	}
	return nil
}

// dataString 事件 data 在线路上总是字符串，非字符串的 JSON 按原文转发
func dataString(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// isEncryptedPayload data 已由调用方加密
func isEncryptedPayload(data string) bool {
	var p token.EncryptedPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return false
	}
	return p.Nonce != "" && p.Ciphertext != ""
}

func encryptPayload(a *app.App, channel, data string) (string, error) {
	key, err := token.DecodeMasterKey(a.EncryptionMasterKey)
	if err != nil {
		return "", err
	}
	p, err := token.Encrypt(channel, data, key)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", errors.ErrServer.WithError(err)
	}
	return string(b), nil
}

func infoFields(info string) map[string]bool {
	fields := make(map[string]bool)
	for _, f := range strings.Split(info, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields[f] = true
		}
	}
	return fields
}
