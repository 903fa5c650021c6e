// config предоставляет структуру конфигурации stork-validator
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища токенов.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultAccountID — идентификатор аккаунта в однопользовательском режиме
// (секция accounts пуста, токены лежат в storage.token_file).
const DefaultAccountID = "default"

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// После чтения файла поверх значений из YAML накладываются ENV-переменные.
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	API        APIConfig        `yaml:"api"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Retry      RetryConfig      `yaml:"retry"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	Storage    StorageConfig    `yaml:"storage"`
	Proxies    ProxiesConfig    `yaml:"proxies"`
	Validation ValidationConfig `yaml:"validation"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Accounts   []AccountConfig  `yaml:"accounts"`
}

// APIConfig — адреса и фиксированные заголовки Stork API.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"STORK_BASE_URL"   env-default:"https://app-api.jp.stork-oracle.network/v1"`
	AuthURL   string `yaml:"auth_url"   env:"STORK_AUTH_URL"   env-default:"https://api.jp.stork-oracle.network/auth"`
	UserAgent string `yaml:"user_agent" env:"STORK_USER_AGENT" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"`
	Origin    string `yaml:"origin"     env:"STORK_ORIGIN"     env-default:"chrome-extension://knnliglhgkmlblppdejchidfihjnockl"`
}

// SchedulerConfig — период опроса и размер пула воркеров.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval" env:"POLL_INTERVAL" env-default:"60s"`
	Workers  int           `yaml:"workers"  env:"POLL_WORKERS"  env-default:"5"`
}

// RetryConfig — политика повторов исполнителя запросов.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	Backoff     time.Duration `yaml:"backoff"      env:"RETRY_BACKOFF"      env-default:"2s"`
}

// TimeoutConfig — таймауты исходящих запросов, обработки gRPC-вызовов и остановки.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request"  env:"REQUEST_TIMEOUT"  env-default:"30s"`
	Service  time.Duration `yaml:"service"  env:"SERVICE_TIMEOUT"  env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// StorageConfig — где хранятся пары токенов.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"STORAGE_DRIVER" env-default:"file"`
	TokensDir   string `yaml:"tokens_dir"   env:"TOKENS_DIR"     env-default:"tokens"`
	TokenFile   string `yaml:"token_file"   env:"TOKEN_FILE"     env-default:"tokens.json"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string `yaml:"redis_url"    env:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX"   env-default:"stork:tokens:"`
}

// ProxiesConfig — файл со списком прокси (по одному URL на строку).
// Пустой путь — назначение прокси из файла выключено.
type ProxiesConfig struct {
	File string `yaml:"file" env:"PROXIES_FILE"`
}

// ValidationConfig — отправка результатов проверки подписанных цен.
type ValidationConfig struct {
	Submit     bool `yaml:"submit"      env:"VALIDATION_SUBMIT"      env-default:"false"`
	DedupeSize int  `yaml:"dedupe_size" env:"VALIDATION_DEDUPE_SIZE" env-default:"1024"`
}

// HTTPConfig — HTTP-сервер для /livez, /healthz и /metrics.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50095"`
}

// GRPCConfig — gRPC-сервер health-check.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50055"`
}

// AccountConfig — описание аккаунта в YAML.
type AccountConfig struct {
	ID        string `yaml:"id"`
	Proxy     string `yaml:"proxy"`
	TokenFile string `yaml:"token_file"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.API.BaseURL == "" || c.API.AuthURL == "" {
		return fmt.Errorf("api.base_url and api.auth_url are required")
	}
	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s")
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be >= 1")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1")
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("retry.backoff must be >= 0")
	}
	if c.Validation.Submit && c.Validation.DedupeSize <= 0 {
		return fmt.Errorf("validation.dedupe_size must be > 0 when submit is enabled")
	}

	switch c.Storage.Driver {
	case DriverFile:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for driver %q", DriverPostgres)
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for driver %q", DriverRedis)
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for i, acc := range c.Accounts {
		if acc.ID == "" {
			return fmt.Errorf("accounts[%d].id is required", i)
		}
		if _, dup := seen[acc.ID]; dup {
			return fmt.Errorf("accounts[%d].id %q is duplicated", i, acc.ID)
		}
		seen[acc.ID] = struct{}{}

		if acc.Proxy != "" {
			if _, err := ParseProxyURL(acc.Proxy); err != nil {
				return fmt.Errorf("accounts[%d].proxy: %w", i, err)
			}
		}
	}

	return nil
}

// AccountList возвращает список аккаунтов; при пустой секции accounts —
// один аккаунт DefaultAccountID с файлом storage.token_file.
func (c *Config) AccountList() []AccountConfig {
	if len(c.Accounts) > 0 {
		return c.Accounts
	}

	return []AccountConfig{{ID: DefaultAccountID, TokenFile: c.Storage.TokenFile}}
}

// ParseProxyURL разбирает адрес прокси и проверяет схему.
// Поддерживаются http, https, socks5 и socks5h.
func ParseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("proxy url has no host")
	}

	return u, nil
}
