package orm

import (
	"time"

	"github.com/tokmz/realtime/pkg/errors"
)

// DBType 数据库类型
type DBType string

const (
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
	SQLite     DBType = "sqlite"
	SQLServer  DBType = "sqlserver"
)

// 预定义错误
var (
	ErrInvalidConfig = errors.New(1401, 500, "invalid database config", nil)
	ErrConnect       = errors.New(1402, 500, "connect database failed", nil)
)

// Config 数据库配置
type Config struct {
	Type DBType `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	PrepareStmt bool `mapstructure:"prepare_stmt"`

	// SlowThreshold 慢查询阈值，超过时以 warn 级别记录
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	TablePrefix   string        `mapstructure:"table_prefix"`

	// Tracing 注册 otel 追踪插件
	Tracing bool `mapstructure:"tracing"`
	// TraceSQL span 中记录完整 SQL
	TraceSQL bool `mapstructure:"trace_sql"`

	ReadWriteSplit *ReadWriteSplitConfig `mapstructure:"read_write_split"`
}

// ReadWriteSplitConfig 读写分离配置
type ReadWriteSplitConfig struct {
	// Sources 从库 DSN 列表
	Sources []string `mapstructure:"sources"`
	// Policy random 或 round_robin
	Policy string `mapstructure:"policy"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:            MySQL,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		PrepareStmt:     true,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrInvalidConfig.WithMessage("dsn is required")
	}
	switch c.Type {
	case MySQL, PostgreSQL, SQLite, SQLServer:
	default:
		return ErrInvalidConfig.WithMessage("unsupported database type: " + string(c.Type))
	}
	if c.ReadWriteSplit != nil && len(c.ReadWriteSplit.Sources) == 0 {
		return ErrInvalidConfig.WithMessage("read-write split enabled but no sources provided")
	}
	return nil
}
