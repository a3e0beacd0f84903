package config

// Option 配置选项函数
type Option func(*Config)

// WithConfigFile 指定配置文件完整路径
func WithConfigFile(path string) Option {
	return func(c *Config) {
		c.configFile = path
	}
}

// WithConfigName 设置配置文件名（不含扩展名）及搜索路径
func WithConfigName(name string, paths ...string) Option {
	return func(c *Config) {
		c.configName = name
		c.configPaths = paths
	}
}

// WithConfigType 设置配置文件类型（如 yaml, json, toml）
func WithConfigType(typ string) Option {
	return func(c *Config) {
		c.configType = typ
	}
}

// WithOptional 配置文件缺失时不报错，仅使用默认值和环境变量
func WithOptional() Option {
	return func(c *Config) {
		c.optional = true
	}
}

// WithAutoWatch 加载后自动开启文件监控
func WithAutoWatch(watch bool) Option {
	return func(c *Config) {
		c.autoWatch = watch
	}
}

// WithOnChange 设置配置变更回调
// 回调在重新读取文件之后执行，可在其中调用 Unmarshal 获取新值
func WithOnChange(fn func(*Config)) Option {
	return func(c *Config) {
		c.onChange = fn
	}
}

// WithDefaults 设置默认配置值
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) {
		c.defaults = defaults
	}
}

// WithEnvPrefix 设置环境变量前缀
// 键名中的 "." 会替换为 "_"，例如 REALTIME_ADAPTER_DRIVER 覆盖 adapter.driver
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}
