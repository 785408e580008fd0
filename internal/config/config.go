package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

// Addr 允许 PORT 直接写成 ":8080" 或 "127.0.0.1:8080"。
func (c ServerConfig) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// LLMConfig 描述对话补全接口的配置。
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model" validate:"required"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gt=0"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// PreserveHistoryRoles forwards assistant turns with their own role instead of
	// re-tagging every prior turn as "user".
	PreserveHistoryRoles bool `mapstructure:"preserve_history_roles"`
}

// Enabled 表示是否提供了调用接口所需的密钥。
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// ChatConfig 描述会话存储。
type ChatConfig struct {
	Store         string        `mapstructure:"store" validate:"oneof=memory redis"`
	HistoryLimit  int           `mapstructure:"history_limit" validate:"gt=0"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gt=0"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// DatabaseConfig 描述日记库的位置。
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig 描述登录能力与令牌签发。
type AuthConfig struct {
	Provider      string        `mapstructure:"provider" validate:"oneof=wechat mock"`
	WeChatAppID   string        `mapstructure:"wechat_app_id" validate:"required_if=Provider wechat"`
	WeChatSecret  string        `mapstructure:"wechat_secret" validate:"required_if=Provider wechat"`
	WeChatBaseURL string        `mapstructure:"wechat_base_url" validate:"required,url"`
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// devJWTSecret 仅在 mock 登录且未配置密钥时使用。
const devJWTSecret = "riji-development-secret"

// ErrInsecureJWTSecret 表示真实登录方式下仍在使用开发密钥。
var ErrInsecureJWTSecret = errors.New("auth.jwt_secret must be set explicitly when auth.provider is wechat")

var defaults = map[string]any{
	"server.port":                "8080",
	"log.level":                  "info",
	"log.format":                 "json",
	"llm.base_url":               "https://api.siliconflow.cn",
	"llm.api_key":                "",
	"llm.model":                  "Qwen/Qwen3-Coder-30B-A3B-Instruct",
	"llm.max_tokens":             1000,
	"llm.temperature":            0.7,
	"llm.timeout":                "0s",
	"llm.preserve_history_roles": false,
	"chat.store":                 "memory",
	"chat.history_limit":         10,
	"chat.session_ttl":           "168h",
	"chat.prune_interval":        "1h",
	"redis.addr":                 "localhost:6379",
	"redis.password":             "",
	"redis.db":                   0,
	"database.path":              "riji.db",
	"auth.provider":              "mock",
	"auth.wechat_app_id":         "",
	"auth.wechat_secret":         "",
	"auth.wechat_base_url":       "https://api.weixin.qq.com",
	"auth.jwt_secret":            "",
	"auth.token_ttl":             "720h",
}

// Load 从环境变量（以及可选的 config.yaml）加载配置。
// 环境变量名为配置键的大写下划线形式，例如 LLM_API_KEY、AUTH_PROVIDER。
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT 沿用平台约定的变量名。
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.normalize()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Auth.Provider != "mock" && cfg.Auth.JWTSecret == devJWTSecret {
		return fmt.Errorf("invalid configuration: %w", ErrInsecureJWTSecret)
	}
	return nil
}

func (c *Config) normalize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.Auth.WeChatBaseURL = strings.TrimRight(strings.TrimSpace(c.Auth.WeChatBaseURL), "/")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Chat.Store = strings.ToLower(strings.TrimSpace(c.Chat.Store))
	c.Auth.Provider = strings.ToLower(strings.TrimSpace(c.Auth.Provider))
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	if c.Auth.JWTSecret == "" && c.Auth.Provider == "mock" {
		c.Auth.JWTSecret = devJWTSecret
	}
}
