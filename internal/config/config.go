package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RemoteConfig points at the central records API this kiosk drains into.
type RemoteConfig struct {
	Addr     string        `mapstructure:"addr"`
	APIKey   string        `mapstructure:"api_key"`
	DeviceID string        `mapstructure:"device_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	MaxAttempts       int             `mapstructure:"max_attempts"`
	MaxQueueSize      int             `mapstructure:"max_queue_size"`
	Backoff           []time.Duration `mapstructure:"backoff"`
	ProbeInterval     time.Duration   `mapstructure:"probe_interval"`
	CountPollInterval time.Duration   `mapstructure:"count_poll_interval"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HubBufferSize     int           `mapstructure:"hub_buffer_size"`
	ReplayBufferSize  int           `mapstructure:"replay_buffer_size"`
}

type AuthConfig struct {
	AdminUser       string        `mapstructure:"admin_user"`
	AdminPassword   string        `mapstructure:"admin_password"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("FLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine; env vars and defaults carry a bare kiosk.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.environment", "dev")
	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("sync.max_attempts", 5)
	viper.SetDefault("sync.max_queue_size", 500)
	viper.SetDefault("sync.backoff", []string{"1s", "2s", "4s", "8s", "30s"})
	viper.SetDefault("sync.probe_interval", "10s")
	viper.SetDefault("sync.count_poll_interval", "5s")
	viper.SetDefault("stream.heartbeat_interval", "15s")
	viper.SetDefault("stream.hub_buffer_size", 128)
	viper.SetDefault("stream.replay_buffer_size", 256)
	viper.SetDefault("remote.timeout", "15s")
	viper.SetDefault("auth.access_token_ttl", "15m")
	viper.SetDefault("auth.refresh_token_ttl", "168h")
	viper.SetDefault("ratelimit.requests_per_second", 5)
}
