// Package app 管理租户应用（App）的定义与查找
package app

// 默认限制
const (
	DefaultMaxPresenceMembersPerChannel = 100
	DefaultMaxPresenceMemberSizeInKb    = 2
	DefaultMaxChannelNameLength         = 200
	DefaultMaxEventChannelsAtOnce       = 100
	DefaultMaxEventNameLength           = 200
	DefaultMaxEventPayloadInKb          = 100
	DefaultMaxEventBatchSize            = 10
)

// App 租户应用
// 限制类字段小于 0 表示不限制，等于 0 表示使用默认值
type App struct {
	ID      string `json:"id" mapstructure:"id" gorm:"primaryKey;size:64"`
	Key     string `json:"key" mapstructure:"key" gorm:"uniqueIndex;size:64;not null"`
	Secret  string `json:"secret" mapstructure:"secret" gorm:"size:128;not null"`
	Enabled *bool  `json:"enabled" mapstructure:"enabled" gorm:"default:true"`

	EnableClientMessages     bool `json:"enable_client_messages" mapstructure:"enable_client_messages"`
	EnableUserAuthentication bool `json:"enable_user_authentication" mapstructure:"enable_user_authentication"`

	MaxConnections            int `json:"max_connections" mapstructure:"max_connections"`
	MaxBackendEventsPerSecond int `json:"max_backend_events_per_second" mapstructure:"max_backend_events_per_second"`
	MaxClientEventsPerSecond  int `json:"max_client_events_per_second" mapstructure:"max_client_events_per_second"`
	MaxReadRequestsPerSecond  int `json:"max_read_requests_per_second" mapstructure:"max_read_requests_per_second"`

	MaxPresenceMembersPerChannel int     `json:"max_presence_members_per_channel" mapstructure:"max_presence_members_per_channel"`
	MaxPresenceMemberSizeInKb    float64 `json:"max_presence_member_size_in_kb" mapstructure:"max_presence_member_size_in_kb"`
	MaxChannelNameLength         int     `json:"max_channel_name_length" mapstructure:"max_channel_name_length"`
	MaxEventChannelsAtOnce       int     `json:"max_event_channels_at_once" mapstructure:"max_event_channels_at_once"`
	MaxEventNameLength           int     `json:"max_event_name_length" mapstructure:"max_event_name_length"`
	MaxEventPayloadInKb          float64 `json:"max_event_payload_in_kb" mapstructure:"max_event_payload_in_kb"`
	MaxEventBatchSize            int     `json:"max_event_batch_size" mapstructure:"max_event_batch_size"`

	// EncryptionMasterKey base64 编码的 32 字节主密钥，用于加密频道
	EncryptionMasterKey string `json:"encryption_master_key,omitempty" mapstructure:"encryption_master_key" gorm:"size:64"`

	Webhooks []Webhook `json:"webhooks" mapstructure:"webhooks" gorm:"serializer:json;type:text"`
}

// Webhook 应用的 webhook 目标
type Webhook struct {
	URL        string            `json:"url" mapstructure:"url"`
	Headers    map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	EventTypes []string          `json:"event_types" mapstructure:"event_types"`
	Filter     WebhookFilter     `json:"filter,omitempty" mapstructure:"filter"`
}

// WebhookFilter 按频道名过滤 webhook
type WebhookFilter struct {
	ChannelNameStartsWith string `json:"channel_name_starts_with,omitempty" mapstructure:"channel_name_starts_with"`
	ChannelNameEndsWith   string `json:"channel_name_ends_with,omitempty" mapstructure:"channel_name_ends_with"`
}

// TableName gorm 表名
func (App) TableName() string {
	return "apps"
}

// IsEnabled 未显式配置时视为启用
func (a *App) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Normalize 补齐默认值，返回自身便于链式调用
func (a *App) Normalize() *App {
	if a.Enabled == nil {
		enabled := true
		a.Enabled = &enabled
	}
	if a.MaxConnections == 0 {
		a.MaxConnections = -1
	}
	if a.MaxBackendEventsPerSecond == 0 {
		a.MaxBackendEventsPerSecond = -1
	}
	if a.MaxClientEventsPerSecond == 0 {
		a.MaxClientEventsPerSecond = -1
	}
	if a.MaxReadRequestsPerSecond == 0 {
		a.MaxReadRequestsPerSecond = -1
	}
	if a.MaxPresenceMembersPerChannel == 0 {
		a.MaxPresenceMembersPerChannel = DefaultMaxPresenceMembersPerChannel
	}
	if a.MaxPresenceMemberSizeInKb == 0 {
		a.MaxPresenceMemberSizeInKb = DefaultMaxPresenceMemberSizeInKb
	}
	if a.MaxChannelNameLength == 0 {
		a.MaxChannelNameLength = DefaultMaxChannelNameLength
	}
	if a.MaxEventChannelsAtOnce == 0 {
		a.MaxEventChannelsAtOnce = DefaultMaxEventChannelsAtOnce
	}
	if a.MaxEventNameLength == 0 {
		a.MaxEventNameLength = DefaultMaxEventNameLength
	}
	if a.MaxEventPayloadInKb == 0 {
		a.MaxEventPayloadInKb = DefaultMaxEventPayloadInKb
	}
	if a.MaxEventBatchSize == 0 {
		a.MaxEventBatchSize = DefaultMaxEventBatchSize
	}
	return a
}

// Clone 深拷贝，调用方可放心修改
func (a *App) Clone() *App {
	cp := *a
	if a.Enabled != nil {
		enabled := *a.Enabled
		cp.Enabled = &enabled
	}
	if a.Webhooks != nil {
		cp.Webhooks = make([]Webhook, len(a.Webhooks))
		for i, w := range a.Webhooks {
			cp.Webhooks[i] = w
			cp.Webhooks[i].EventTypes = append([]string(nil), w.EventTypes...)
			if w.Headers != nil {
				cp.Webhooks[i].Headers = make(map[string]string, len(w.Headers))
				for k, v := range w.Headers {
					cp.Webhooks[i].Headers[k] = v
				}
			}
		}
	}
	return &cp
}

// HasWebhooksFor 是否存在订阅了该事件类型的 webhook
func (a *App) HasWebhooksFor(event string) bool {
	for _, w := range a.Webhooks {
		for _, t := range w.EventTypes {
			if t == event {
				return true
			}
		}
	}
	return false
}
