package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                int              `json:"port"`
	Database            DatabaseConfig   `json:"database"`
	JWTSecret           string           `json:"jwt_secret"`
	JWTTTLHours         int              `json:"jwt_ttl_hours"`
	AdminToken          string           `json:"admin_token"`
	RegisterRequiresOTP bool             `json:"register_requires_otp"`
	CORSAllowlist       []string         `json:"cors_allowlist"`
	LogConfig           logger.LogConfig `json:"log_config"`
	TransportKey        TransportKey     `json:"transport_key"`
	OTP                 OTPConfig        `json:"otp"`
	Account             AccountConfig    `json:"account"`
	Mail                MailConfig       `json:"mail"`
	RateLimit           RateLimitConfig  `json:"rate_limit"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type TransportKey struct {
	Bits       int            `json:"bits"`
	TTLSeconds int            `json:"ttl_seconds"`
	Padding    string         `json:"padding"`
	Cache      KeyCacheConfig `json:"cache"`
}

type KeyCacheConfig struct {
	Type  string      `json:"type"`
	Size  int         `json:"size"`
	Redis RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type OTPConfig struct {
	Length          int    `json:"length"`
	TTLSeconds      int    `json:"ttl_seconds"`
	MaxAttempts     int    `json:"max_attempts"`
	CooldownSeconds int    `json:"cooldown_seconds"`
	CleanupCron     string `json:"cleanup_cron"`
}

type AccountConfig struct {
	RetentionDays int    `json:"retention_days"`
	PurgeCron     string `json:"purge_cron"`
	PurgeBatch    int    `json:"purge_batch"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port != 0 && strings.TrimSpace(m.From) != ""
}

type RateLimitConfig struct {
	OTPWindowSeconds int `json:"otp_window_seconds"`
	OTPBurst         int `json:"otp_burst"`
	KeyWindowSeconds int `json:"key_window_seconds"`
	KeyBurst         int `json:"key_burst"`
}

// Load reads the JSON config at path. When envPath is set, the dotenv file
// is loaded first and ACCOUNTD_* variables override secrets from the file.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ACCOUNTD_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("ACCOUNTD_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ACCOUNTD_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("ACCOUNTD_SMTP_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("ACCOUNTD_REDIS_PASSWORD"); v != "" {
		cfg.TransportKey.Cache.Redis.Password = v
	}
}

func (cfg *Config) normalize() error {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}

	tk := &cfg.TransportKey
	if tk.Bits == 0 {
		tk.Bits = 4096
	}
	if tk.Bits < 2048 {
		return fmt.Errorf("transport_key.bits must be at least 2048")
	}
	if tk.TTLSeconds <= 0 {
		tk.TTLSeconds = 600
	}
	switch strings.ToLower(tk.Padding) {
	case "":
		tk.Padding = "oaep"
	case "oaep", "pkcs1v15":
		tk.Padding = strings.ToLower(tk.Padding)
	default:
		return fmt.Errorf("transport_key.padding must be oaep or pkcs1v15")
	}
	if tk.Cache.Type == "" {
		tk.Cache.Type = "memory"
	}
	switch tk.Cache.Type {
	case "memory":
		if tk.Cache.Size <= 0 {
			tk.Cache.Size = 10000
		}
	case "redis":
		if tk.Cache.Redis.Addr == "" {
			return fmt.Errorf("transport_key.cache.redis.addr is required for redis cache")
		}
		if tk.Cache.Redis.Prefix == "" {
			tk.Cache.Redis.Prefix = "tk"
		}
	default:
		return fmt.Errorf("transport_key.cache.type must be memory or redis")
	}

	otp := &cfg.OTP
	if otp.Length == 0 {
		otp.Length = 6
	}
	if otp.Length < 4 || otp.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10")
	}
	if otp.TTLSeconds <= 0 {
		otp.TTLSeconds = 600
	}
	if otp.MaxAttempts <= 0 {
		otp.MaxAttempts = 5
	}
	if otp.CooldownSeconds < 0 {
		otp.CooldownSeconds = 0
	}
	if otp.CleanupCron == "" {
		otp.CleanupCron = "*/10 * * * *"
	}

	acc := &cfg.Account
	if acc.RetentionDays <= 0 {
		acc.RetentionDays = 30
	}
	if acc.PurgeCron == "" {
		acc.PurgeCron = "0 * * * *"
	}
	if acc.PurgeBatch <= 0 {
		acc.PurgeBatch = 100
	}

	if cfg.RateLimit.OTPWindowSeconds <= 0 {
		cfg.RateLimit.OTPWindowSeconds = 10
	}
	if cfg.RateLimit.OTPBurst <= 0 {
		cfg.RateLimit.OTPBurst = 3
	}
	if cfg.RateLimit.KeyWindowSeconds <= 0 {
		cfg.RateLimit.KeyWindowSeconds = 2
	}
	if cfg.RateLimit.KeyBurst <= 0 {
		cfg.RateLimit.KeyBurst = 10
	}
	return nil
}
