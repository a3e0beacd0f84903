package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tokmz/realtime/pkg/errors"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/orm"
)

// Manager 应用查找接口，找不到时返回 ErrAppNotFound
type Manager interface {
	FindByID(ctx context.Context, id string) (*App, error)
	FindByKey(ctx context.Context, key string) (*App, error)
}

// Driver 应用存储驱动
type Driver string

const (
	DriverArray Driver = "array"
	DriverSQL   Driver = "sql"
)

// Config 应用管理配置
type Config struct {
	Driver Driver      `mapstructure:"driver"`
	Apps   []App       `mapstructure:"apps"`
	SQL    *orm.Config `mapstructure:"sql"`

	// AutoMigrate 启动时自动建表
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// CacheTTL 查找结果缓存时间，0 表示不缓存
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverArray,
		Apps: []App{{
			ID:     "app-id",
			Key:    "app-key",
			Secret: "app-secret",
		}},
	}
}

// New 根据配置创建 Manager
// 返回的 closer 用于释放数据库连接，array 驱动时为空操作
func New(ctx context.Context, cfg *Config, log logger.Logger) (Manager, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		m      Manager
		closer = func() error { return nil }
	)
	switch cfg.Driver {
	case DriverArray, "":
		am, err := NewArrayManager(cfg.Apps)
		if err != nil {
			return nil, nil, err
		}
		m = am
	case DriverSQL:
		if cfg.SQL == nil {
			return nil, nil, ErrAppInvalidConfig.WithMessage("sql config is required")
		}
		db, err := orm.New(cfg.SQL, log)
		if err != nil {
			return nil, nil, err
		}
		closer = func() error { return orm.Close(db) }

		sm := NewSQLManager(db)
		if cfg.AutoMigrate {
			if err := sm.Migrate(ctx); err != nil {
				_ = closer()
				return nil, nil, err
			}
		}
		m = sm
	default:
		return nil, nil, ErrAppInvalidConfig.WithMessage("unsupported driver: " + string(cfg.Driver))
	}

	if cfg.CacheTTL > 0 {
		m = NewCachedManager(m, cfg.CacheTTL)
	}
	return m, closer, nil
}

// SQLManager 基于 gorm 的应用存储
type SQLManager struct {
	db *gorm.DB
}

// NewSQLManager 创建 SQL 应用存储
func NewSQLManager(db *gorm.DB) *SQLManager {
	return &SQLManager{db: db}
}

// Migrate 自动建表
func (m *SQLManager) Migrate(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&App{}); err != nil {
		return ErrAppLookup.WithError(err)
	}
	return nil
}

// Save 新增或更新应用
func (m *SQLManager) Save(ctx context.Context, a *App) error {
	if a.ID == "" || a.Key == "" || a.Secret == "" {
		return ErrAppInvalid.WithMessage("id, key and secret are required")
	}
	if err := m.db.WithContext(ctx).Save(a).Error; err != nil {
		return ErrAppLookup.WithError(err)
	}
	return nil
}

func (m *SQLManager) FindByID(ctx context.Context, id string) (*App, error) {
	return m.find(ctx, &App{ID: id})
}

func (m *SQLManager) FindByKey(ctx context.Context, key string) (*App, error) {
	return m.find(ctx, &App{Key: key})
}

func (m *SQLManager) find(ctx context.Context, cond *App) (*App, error) {
	var a App
	err := m.db.WithContext(ctx).Where(cond).Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, ErrAppLookup.WithError(err)
	}
	return a.Normalize(), nil
}
