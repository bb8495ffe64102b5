package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit"`
	Auth        AuthConfig        `yaml:"auth"`
	Wallet      WalletConfig      `yaml:"wallet"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Poller      PollerConfig      `yaml:"poller"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	BalanceTTL time.Duration `yaml:"balance_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// WalletConfig bounds bulk disbursement.
type WalletConfig struct {
	BulkItemTimeout   time.Duration `yaml:"bulk_item_timeout"`
	MaxBulkRecipients int           `yaml:"max_bulk_recipients"`
	Currency          string        `yaml:"currency"`
}

type IdempotencyConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type PollerConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when a key is absent from the file.
func Default() Config {
	return Config{
		Server:      ServerConfig{Port: 8080, ReadTimeout: 10 * time.Second, WriteTimeout: 30 * time.Second},
		Postgres:    PostgresConfig{MaxOpenConns: 50, MaxIdleConns: 10},
		Redis:       RedisConfig{Addr: "localhost:6379", BalanceTTL: 5 * time.Minute},
		Kafka:       KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "org-wallet-events"},
		RateLimit:   RateLimitConfig{RPS: 20, Burst: 40},
		Auth:        AuthConfig{Issuer: "org-wallet"},
		Wallet:      WalletConfig{BulkItemTimeout: 10 * time.Second, MaxBulkRecipients: 500, Currency: "NGN"},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		Poller:      PollerConfig{Interval: time.Second, BatchSize: 100},
		Log:         LogConfig{Level: "info"},
	}
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if p := os.Getenv("WALLET_CONFIG"); p != "" {
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes yaml on top of Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		c.Postgres.DSN = c.Postgres.DSN + " password=" + pw
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Wallet.BulkItemTimeout <= 0 {
		errs = append(errs, errors.New("wallet.bulk_item_timeout must be positive"))
	}
	if c.Wallet.MaxBulkRecipients <= 0 {
		errs = append(errs, errors.New("wallet.max_bulk_recipients must be positive"))
	}
	if c.Poller.Interval <= 0 || c.Poller.BatchSize <= 0 {
		errs = append(errs, errors.New("poller.interval and poller.batch_size must be positive"))
	}
	return errors.Join(errs...)
}
