package ws

import (
	"context"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/tokmz/realtime/pkg/token"
)

// JoinResponse 加入频道的结果
type JoinResponse struct {
	Success            bool
	ChannelConnections int

	// Member presence 频道的成员信息
	Member *PresenceMember

	AuthError    bool
	Type         string
	ErrorMessage string
	ErrorCode    int
}

// LeaveResponse 离开频道的结果
type LeaveResponse struct {
	Left                 bool
	RemainingConnections int
}

// ChannelManager 不同类型频道的加入与离开策略
type ChannelManager interface {
	Join(ctx context.Context, s *Socket, channel string, data *SubscribeData) (*JoinResponse, error)
	Leave(ctx context.Context, s *Socket, channel string) (*LeaveResponse, error)
}

// channelManagers 按频道类型选择策略
type channelManagers struct {
	public    *PublicChannelManager
	private   *PrivateChannelManager
	presence  *PresenceChannelManager
	encrypted *EncryptedPrivateChannelManager
}

func newChannelManagers(adapter Adapter) *channelManagers {
	public := &PublicChannelManager{adapter: adapter}
	private := &PrivateChannelManager{PublicChannelManager: public}
	return &channelManagers{
		public:    public,
		private:   private,
		presence:  &PresenceChannelManager{PrivateChannelManager: private},
		encrypted: &EncryptedPrivateChannelManager{PrivateChannelManager: private},
	}
}

func (m *channelManagers) managerFor(channel string) ChannelManager {
	switch KindOf(channel) {
	case ChannelPresence:
		return m.presence
	case ChannelEncryptedPrivate:
		return m.encrypted
	case ChannelPrivate:
		return m.private
	default:
		return m.public
	}
}

// PublicChannelManager 公共频道，无需授权
type PublicChannelManager struct {
	adapter Adapter
}

func (m *PublicChannelManager) Join(ctx context.Context, s *Socket, channel string, _ *SubscribeData) (*JoinResponse, error) {
	n, err := m.adapter.AddToChannel(ctx, s.AppID(), channel, s)
	if err != nil {
		return nil, err
	}
	return &JoinResponse{Success: true, ChannelConnections: n}, nil
}

// Leave 未订阅的频道返回 Left=false
func (m *PublicChannelManager) Leave(ctx context.Context, s *Socket, channel string) (*LeaveResponse, error) {
	if !s.IsSubscribed(channel) {
		return &LeaveResponse{}, nil
	}
	n, err := m.adapter.RemoveFromChannel(ctx, s.AppID(), channel, s.ID)
	if err != nil {
		return nil, err
	}
	return &LeaveResponse{Left: true, RemainingConnections: n}, nil
}

// PrivateChannelManager 私有频道，校验 socketID:channel 签名
type PrivateChannelManager struct {
	*PublicChannelManager
}

func (m *PrivateChannelManager) Join(ctx context.Context, s *Socket, channel string, data *SubscribeData) (*JoinResponse, error) {
	if !m.signatureIsValid(s, channel, data) {
		return &JoinResponse{
			AuthError:    true,
			Type:         "AuthError",
			ErrorMessage: "Invalid signature",
			ErrorCode:    CodeUnauthorized,
		}, nil
	}
	return m.PublicChannelManager.Join(ctx, s, channel, data)
}

func (m *PrivateChannelManager) signatureIsValid(s *Socket, channel string, data *SubscribeData) bool {
	a := s.App()
	if a == nil || data == nil {
		return false
	}
	payload := s.ID + ":" + channel
	if data.ChannelData != "" {
		payload += ":" + data.ChannelData
	}
	return token.VerifyAuth(a.Key, a.Secret, payload, data.Auth)
}

// PresenceChannelManager presence 频道，额外解析成员信息并检查成员上限
type PresenceChannelManager struct {
	*PrivateChannelManager
}

// presenceChannelData channel_data 解码结果，user_id 可能是数字
type presenceChannelData struct {
	UserID   jsoniter.RawMessage `json:"user_id"`
	UserInfo jsoniter.RawMessage `json:"user_info"`
}

func (m *PresenceChannelManager) Join(ctx context.Context, s *Socket, channel string, data *SubscribeData) (*JoinResponse, error) {
	a := s.App()
	count, err := m.adapter.GetChannelMembersCount(ctx, a.ID, channel)
	if err != nil {
		return nil, err
	}
	if count+1 > a.MaxPresenceMembersPerChannel {
		return &JoinResponse{
			Type:         "LimitReached",
			ErrorMessage: "The maximum members per presence channel limit was reached",
			ErrorCode:    CodeOverQuota,
		}, nil
	}

	member, ok := decodePresenceMember(data)
	if !ok {
		return &JoinResponse{
			Type:         "InvalidPresenceData",
			ErrorMessage: "The presence channel data must contain a \"user_id\" field.",
			ErrorCode:    CodeUnauthorized,
		}, nil
	}
	if size := DataToKilobytes(member.raw); size > a.MaxPresenceMemberSizeInKb {
		return &JoinResponse{
			Type:         "LimitReached",
			ErrorMessage: "The maximum size for a channel member is " + strconv.FormatFloat(a.MaxPresenceMemberSizeInKb, 'f', -1, 64) + " KB.",
			ErrorCode:    CodeClientEventDenied,
		}, nil
	}

	resp, err := m.PrivateChannelManager.Join(ctx, s, channel, data)
	if err != nil || !resp.Success {
		return resp, err
	}
	resp.Member = &member.PresenceMember
	return resp, nil
}

type decodedMember struct {
	PresenceMember
	raw jsoniter.RawMessage
}

func decodePresenceMember(data *SubscribeData) (decodedMember, bool) {
	if data == nil || data.ChannelData == "" {
		return decodedMember{}, false
	}
	var cd presenceChannelData
	if err := json.Unmarshal([]byte(data.ChannelData), &cd); err != nil {
		return decodedMember{}, false
	}
	id, ok := normalizeID(cd.UserID)
	if !ok {
		return decodedMember{}, false
	}

	var info any
	if len(cd.UserInfo) > 0 {
		if err := json.Unmarshal(cd.UserInfo, &info); err != nil {
			return decodedMember{}, false
		}
	}
	return decodedMember{
		PresenceMember: PresenceMember{UserID: id, UserInfo: info},
		raw:            cd.UserInfo,
	}, true
}

// EncryptedPrivateChannelManager 加密私有频道
// 订阅授权与私有频道一致，服务端不持有客户端的解密状态
// 载荷由 REST 发布时按频道共享密钥加密，应用未配置主密钥时原样转发
type EncryptedPrivateChannelManager struct {
	*PrivateChannelManager
}
