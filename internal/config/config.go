package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	SessionTTLHours int           `mapstructure:"session_ttl_hours"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// SessionTTL is the session lifetime; it also drives the cookie Max-Age.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
	// TrustProxyHeaders keys limits on CF-Connecting-IP / X-Forwarded-For
	// instead of the peer address. Enable only behind a rewriting proxy.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// Load reads configuration from an optional YAML file and ADVENT_* environment
// variables. An empty path searches "." and "./configs" for config.yaml; a
// missing file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ADVENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Auth.SessionTTLHours <= 0 {
		return fmt.Errorf("invalid auth.session_ttl_hours %d", c.Auth.SessionTTLHours)
	}
	if c.Auth.SweepInterval <= 0 {
		return fmt.Errorf("invalid auth.sweep_interval %s", c.Auth.SweepInterval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("database.path", "adventskalender.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("auth.session_ttl_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.sweep_interval", "1h")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("ratelimit.auth_per_minute", 10)
	v.SetDefault("ratelimit.trust_proxy_headers", false)
}
