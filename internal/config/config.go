// Package config загружает настройки сервера из YAML-файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Storage struct {
		// Type: memory, postgres или sqlite
		Type string `yaml:"type" env:"STORAGE_TYPE"`
	} `yaml:"storage"`

	Postgres struct {
		DSN      string `yaml:"dsn" env:"POSTGRES_DSN"`
		MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path" env:"SQLITE_PATH"`
	} `yaml:"sqlite"`

	Auth struct {
		Secret     string        `yaml:"secret" env:"AUTH_SECRET"`
		AccessTTL  time.Duration `yaml:"access_ttl" env:"AUTH_ACCESS_TTL"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" env:"AUTH_REFRESH_TTL"`
	} `yaml:"auth"`

	// Groups создаются при старте, если группы с таким slug еще нет
	Groups []GroupSeed `yaml:"groups"`
}

type GroupSeed struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Storage.Type = "memory"
	cfg.Postgres.MaxConns = 10
	cfg.SQLite.Path = "yatube.db"
	cfg.Auth.AccessTTL = 24 * time.Hour
	cfg.Auth.RefreshTTL = 7 * 24 * time.Hour
	return cfg
}

// Load читает файл path поверх значений по умолчанию и применяет переменные окружения.
// Отсутствующий файл не считается ошибкой.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "sqlite":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	return nil
}
