// Package config loads settings from defaults, an optional YAML file and
// RECIPEBOX_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix  = "RECIPEBOX_"
	PathEnvVar = EnvPrefix + "CONFIG"
)

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type MySQLConfig struct {
	DSN string `koanf:"dsn" validate:"required"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint" validate:"required"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket" validate:"required"`
	// PublicURL overrides the base URL images are served from.
	PublicURL string `koanf:"public_url"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret" validate:"required,min=8"`
	TTL    time.Duration `koanf:"ttl" validate:"gt=0"`
}

type LikesConfig struct {
	SyncInterval time.Duration `koanf:"sync_interval" validate:"gt=0"`
}

type Config struct {
	Server ServerConfig `koanf:"server"`
	MySQL  MySQLConfig  `koanf:"mysql"`
	Redis  RedisConfig  `koanf:"redis"`
	Minio  MinioConfig  `koanf:"minio"`
	JWT    JWTConfig    `koanf:"jwt"`
	Likes  LikesConfig  `koanf:"likes"`
}

// Default matches a local docker-compose setup.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		MySQL: MySQLConfig{
			DSN: "root:123456@tcp(127.0.0.1:3306)/recipebox?charset=utf8mb4&parseTime=True&loc=Local",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Minio: MinioConfig{
			Endpoint:  "127.0.0.1:9000",
			AccessKey: "admin",
			SecretKey: "password123",
			Bucket:    "recipes",
		},
		JWT: JWTConfig{
			Secret: "change-me-please",
			TTL:    24 * time.Hour,
		},
		Likes: LikesConfig{
			SyncInterval: time.Minute,
		},
	}
}

// envKey maps RECIPEBOX_MINIO_ACCESS_KEY to minio.access_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
