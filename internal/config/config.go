package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN        string `yaml:"url"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	// Redis is optional. With an empty Addr the hub only delivers to
	// sockets connected to this process.
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	// Seed creates a first admin and its subreddit on startup when set.
	Seed struct {
		AdminUsername string `yaml:"admin_username"`
		Subreddit     string `yaml:"subreddit"`
	} `yaml:"seed"`

	Realtime struct {
		SendBuffer          int `yaml:"send_buffer"`
		PingIntervalSeconds int `yaml:"ping_interval_seconds"`
		FanoutWorkers       int `yaml:"fanout_workers"`
	} `yaml:"realtime"`

	// Retention prunes the action log. Zero days keeps everything.
	Retention struct {
		ActionLogDays        int `yaml:"action_log_days"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"retention"`
}

const DefaultConfigPath = "config/config.yaml"

var AppConfig *Config

// Load reads the YAML file at path (a missing file is not an error), applies
// environment overrides and fills defaults. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config file %s not found, using environment only", path)
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()

	if cfg.Database.DSN == "" {
		return nil, errors.New("database url is not configured (database.url or DATABASE_URL)")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret is not configured (jwt.secret or JWT_SECRET)")
	}

	return &cfg, nil
}

// LoadConfig loads into AppConfig and exits on failure.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
	return cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig("")
	}
	return AppConfig
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FIRST_ADMIN_USERNAME"); v != "" {
		cfg.Seed.AdminUsername = v
	}
}

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Database.MaxRetries <= 0 {
		c.Database.MaxRetries = 5
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 60
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "forum:events"
	}
	if c.Realtime.SendBuffer <= 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.PingIntervalSeconds <= 0 {
		c.Realtime.PingIntervalSeconds = 54
	}
	if c.Realtime.FanoutWorkers <= 0 {
		c.Realtime.FanoutWorkers = 4
	}
	if c.Retention.SweepIntervalMinutes <= 0 {
		c.Retention.SweepIntervalMinutes = 60
	}
}

func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Realtime.PingIntervalSeconds) * time.Second
}

// ActionLogMaxAge is zero when retention is disabled.
func (c *Config) ActionLogMaxAge() time.Duration {
	if c.Retention.ActionLogDays <= 0 {
		return 0
	}
	return time.Duration(c.Retention.ActionLogDays) * 24 * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalMinutes) * time.Minute
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTL) * time.Minute
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
