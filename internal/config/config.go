package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        int      `mapstructure:"port"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"server"`

	Database struct {
		Driver string `mapstructure:"driver"` // sqlite, postgres or memory
		Path   string `mapstructure:"path"`   // SQLite database file path
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenTTL      time.Duration `mapstructure:"token_ttl"`
		AdminUsername string        `mapstructure:"admin_username"`
		AdminPassword string        `mapstructure:"admin_password"`
		AdminEmail    string        `mapstructure:"admin_email"`
	} `mapstructure:"auth"`

	Email struct {
		SMTPHost string `mapstructure:"smtp_host"`
		SMTPPort int    `mapstructure:"smtp_port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"email"`

	Slack struct {
		Token   string `mapstructure:"token"`
		Channel string `mapstructure:"channel"`
	} `mapstructure:"slack"`

	Scheduler struct {
		MaxConcurrentRuns int64         `mapstructure:"max_concurrent_runs"`
		WindowDays        int           `mapstructure:"window_days"`
		Guard             string        `mapstructure:"guard"` // none, memory or redis
		LeaseTTL          time.Duration `mapstructure:"lease_ttl"`
	} `mapstructure:"scheduler"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/hoteldesk.db")

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_email", "admin@localhost")

	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 25)
	v.SetDefault("email.from", "HotelDesk <reports@localhost>")

	v.SetDefault("scheduler.max_concurrent_runs", 4)
	v.SetDefault("scheduler.window_days", 30)
	v.SetDefault("scheduler.guard", "none")
	v.SetDefault("scheduler.lease_ttl", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig loads the configuration from config.yaml (or the given file),
// environment variables prefixed with HOTELDESK_, and defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOTELDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, defaults and environment apply
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Scheduler.Guard {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported scheduler guard: %s", c.Scheduler.Guard)
	}

	if c.Scheduler.MaxConcurrentRuns < 1 {
		return fmt.Errorf("scheduler.max_concurrent_runs must be positive")
	}
	if c.Scheduler.WindowDays < 1 {
		return fmt.Errorf("scheduler.window_days must be positive")
	}
	return nil
}
