// config загружает конфигурацию локального BFF-процесса PricePilot.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// Переменные из ./.env (если файл есть) подгружаются в окружение до чтения,
// поэтому ENV-оверлей их видит.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	HTTP     HTTPConfig    `yaml:"http"`
	API      APIConfig     `yaml:"api"`
	Tokens   TokensConfig  `yaml:"tokens"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	WS       WSConfig      `yaml:"ws"`
}

// HTTPConfig — локальный REST-сервер для UI.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090" validate:"required,numeric"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// APIConfig — удалённый API PricePilot.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_BASE_URL"   env-default:"http://localhost:8000/api" validate:"required,url"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"pricepilot-bff/1.0"`
}

// TokensConfig — где хранится пара токенов.
type TokensConfig struct {
	Driver      string `yaml:"driver"       env:"TOKENS_DRIVER"       env-default:"file" validate:"oneof=memory file redis"`
	FilePath    string `yaml:"file_path"    env:"TOKENS_FILE_PATH"    env-default:".pricepilot/tokens.json" validate:"required_if=Driver file"`
	RedisURL    string `yaml:"redis_url"    env:"TOKENS_REDIS_URL"    validate:"required_if=Driver redis"`
	RedisPrefix string `yaml:"redis_prefix" env:"TOKENS_REDIS_PREFIX" env-default:"pricepilot:session:"`
}

// TimeoutConfig — таймауты.
//   - Service: бюджет на один локальный HTTP-запрос;
//   - Upstream: дедлайн вызова удалённого API, если у контекста его нет;
//   - Restore: бюджет на восстановление сессии при старте.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service"  env:"TIMEOUT_SERVICE"  env-default:"15s"`
	Upstream time.Duration `yaml:"upstream" env:"TIMEOUT_UPSTREAM" env-default:"10s"`
	Restore  time.Duration `yaml:"restore"  env:"TIMEOUT_RESTORE"  env-default:"10s"`
}

// WSConfig — websocket со снапшотами сессии.
type WSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"WS_ALLOWED_ORIGINS" env-separator:","`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	// .env не обязателен.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config

	switch {
	// 1) --config
	case path != "":
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	// 2) CONFIG_PATH
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH"), &cfg); err != nil {
			return nil, err
		}
	// 3) ./local.yaml
	case fileExists("local.yaml"):
		if err := readFile("local.yaml", &cfg); err != nil {
			return nil, err
		}
	// 4) только ENV
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность значений после загрузки.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// readFile читает YAML и накладывает поверх ENV.
func readFile(p string, cfg *Config) error {
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("config file %q stat failed: %w", p, err)
	}

	if err := cleanenv.ReadConfig(p, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to overlay env: %w", err)
	}

	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
