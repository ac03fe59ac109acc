package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Session  SessionConfig  `mapstructure:"session"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// APIConfig 后端 REST 接口配置
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig Redis 配置（实时事件通道）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RealtimeConfig 实时调和器配置
type RealtimeConfig struct {
	BufferSize   int           `mapstructure:"buffer_size"`   // 事件 Channel 缓冲大小
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 订阅错误退避时间
}

// SessionConfig 登录会话配置（token 由登录流程写入）
type SessionConfig struct {
	UserID   string `mapstructure:"user_id"`
	UserName string `mapstructure:"user_name"`
	Role     string `mapstructure:"role"`
	Token    string `mapstructure:"token"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Realtime.BufferSize <= 0 {
		c.Realtime.BufferSize = 64
	}
	if c.Realtime.ErrorBackoff <= 0 {
		c.Realtime.ErrorBackoff = time.Second
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}
	return nil
}
