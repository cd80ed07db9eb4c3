package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all configuration for the simulator.
type Config struct {
	Version string `mapstructure:"-"`

	Sim     SimConfig     `mapstructure:"sim"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

type SimConfig struct {
	InitialCash  float64       `mapstructure:"initial_cash"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Seed         int64         `mapstructure:"seed"` // 0 = seed from the clock
	UniverseFile string        `mapstructure:"universe_file"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"` // file, redis, memory
	Dir     string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int64  `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// InitialCashDecimal is the starting balance as a 2-decimal amount.
func (c *Config) InitialCashDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Sim.InitialCash).Round(2)
}

// Load reads configuration from a .env file, environment variables, and defaults.
func Load() (*Config, error) {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on system environment variables")
	}

	v := viper.New()

	v.SetDefault("sim.initial_cash", 1000000.0)
	v.SetDefault("sim.tick_interval", "3s")
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.universe_file", "")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "data")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.file", "paper_sim.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	// "sim.initial_cash" -> SIM_INITIAL_CASH
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so flat env vars have to be
	// bound explicitly.
	bindEnv(v, "sim.initial_cash", "sim.tick_interval", "sim.seed", "sim.universe_file")
	bindEnv(v, "storage.backend", "storage.dir")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "log.file", "log.level", "log.max_size_mb", "log.max_backups")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c *Config) Validate() error {
	if c.Sim.InitialCash <= 0 {
		return fmt.Errorf("sim.initial_cash must be positive, got %v", c.Sim.InitialCash)
	}
	if c.Sim.TickInterval <= 0 {
		return fmt.Errorf("sim.tick_interval must be positive, got %s", c.Sim.TickInterval)
	}
	switch c.Storage.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("storage.backend must be file, redis or memory, got %q", c.Storage.Backend)
	}
	return nil
}

// LogFields summarises the configuration for the startup log, with secrets masked.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("initial_cash", c.InitialCashDecimal().StringFixed(2)),
		zap.Duration("tick_interval", c.Sim.TickInterval),
		zap.Int64("seed", c.Sim.Seed),
		zap.String("universe_file", c.Sim.UniverseFile),
		zap.String("storage_backend", c.Storage.Backend),
		zap.String("storage_dir", c.Storage.Dir),
		zap.String("redis_addr", c.Redis.Addr),
		zap.String("redis_password", mask(c.Redis.Password)),
	}
}

// mask shows only the last 4 chars of a secret.
func mask(val string) string {
	if val == "" {
		return ""
	}
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
