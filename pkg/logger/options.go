package logger

// Option 修改 Config，按传入顺序生效
type Option func(*Config)

// WithLevel 设置日志级别
func WithLevel(level Level) Option {
	return func(c *Config) {
		c.Level = level
	}
}

// WithLevelName 按名称设置级别，配置文件中的 "warn"、"DEBUG" 等
// 无法识别的名称按 info 处理
func WithLevelName(name string) Option {
	return WithLevel(ParseLevel(name))
}

// WithFormat 设置编码格式，无效值在创建时回退为 json
func WithFormat(format Format) Option {
	return func(c *Config) {
		c.Format = format
	}
}

// WithConsole 是否写标准输出
func WithConsole(enable bool) Option {
	return func(c *Config) {
		c.Console = enable
	}
}

// WithFile 追加写入文件，path 为空时忽略
func WithFile(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.File = path
		}
	}
}

// WithRotate 按大小轮转的文件输出，rc 为 nil 时忽略
func WithRotate(rc *RotateConfig) Option {
	return func(c *Config) {
		if rc != nil {
			c.Rotate = rc
		}
	}
}

// WithSampling 每秒前 initial 条全部记录，之后每 thereafter 条记录 1 条
// 两者都为 0 时不采样
func WithSampling(initial, thereafter int) Option {
	return func(c *Config) {
		if initial == 0 && thereafter == 0 {
			c.Sampling = nil
			return
		}
		c.Sampling = &SamplingConfig{Initial: initial, Thereafter: thereafter}
	}
}

func WithCaller(enable bool) Option {
	return func(c *Config) {
		c.EnableCaller = enable
	}
}

func WithStacktrace(enable bool) Option {
	return func(c *Config) {
		c.EnableStacktrace = enable
	}
}

// WithHook 追加 Hook，可多次调用
func WithHook(hook Hook) Option {
	return func(c *Config) {
		c.Hooks = append(c.Hooks, hook)
	}
}
