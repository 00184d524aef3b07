// Package config содержит логику чтения конфигурации клиента маркетплейса и dev-сервера.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Поддерживаемые бэкенды локального хранилища.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

const (
	defaultAPIBaseURL     = "http://localhost:8000/api"
	defaultStorageBackend = StorageFile
	defaultStoragePath    = "~/.local/share/foodmarket"
	defaultRunAddress     = "localhost:8000"
	defaultDeliveryFee    = 500
	defaultRequestTimeout = 10 * time.Second
	defaultLogLevel       = "info"
)

// Config содержит параметры клиента и dev-сервера.
type Config struct {
	APIBaseURL     string        `validate:"required,url"`
	StorageBackend string        `validate:"oneof=memory file postgres redis"`
	StoragePath    string        `validate:"required_if=StorageBackend file"`
	DatabaseURI    string        `validate:"required_if=StorageBackend postgres"`
	RedisAddress   string        `validate:"required_if=StorageBackend redis"`
	DeliveryFee    int64         `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	RunAddress     string        `validate:"required"`
	JWTSecret      string
	ConfigFile     string
}

// envConfig значения из окружения. Незаданные переменные остаются nil.
type envConfig struct {
	APIBaseURL     *string        `env:"API_BASE_URL"`
	StorageBackend *string        `env:"STORAGE_BACKEND"`
	StoragePath    *string        `env:"STORAGE_PATH"`
	DatabaseURI    *string        `env:"DATABASE_URI"`
	RedisAddress   *string        `env:"REDIS_ADDRESS"`
	DeliveryFee    *int64         `env:"DELIVERY_FEE"`
	RequestTimeout *time.Duration `env:"REQUEST_TIMEOUT"`
	LogLevel       *string        `env:"LOG_LEVEL"`
	RunAddress     *string        `env:"RUN_ADDRESS"`
	JWTSecret      *string        `env:"JWT_SECRET"`
	ConfigFile     *string        `env:"CONFIG_FILE"`
}

// fileConfig значения из TOML-файла.
type fileConfig struct {
	APIBaseURL     *string `toml:"api_base_url"`
	StorageBackend *string `toml:"storage_backend"`
	StoragePath    *string `toml:"storage_path"`
	DatabaseURI    *string `toml:"database_uri"`
	RedisAddress   *string `toml:"redis_address"`
	DeliveryFee    *int64  `toml:"delivery_fee"`
	RequestTimeout *string `toml:"request_timeout"`
	LogLevel       *string `toml:"log_level"`
	RunAddress     *string `toml:"run_address"`
	JWTSecret      *string `toml:"jwt_secret"`
}

// Parse считывает конфигурацию. Приоритет: переменные окружения, затем флаги,
// затем TOML-файл (-c или CONFIG_FILE), затем значения по умолчанию.
func Parse() (*Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.ConfigFile, "c", "", "path to TOML config file")
	flag.StringVar(&cfg.APIBaseURL, "api", defaultAPIBaseURL, "remote API base URL")
	flag.StringVar(&cfg.StorageBackend, "s", defaultStorageBackend, "local storage backend: memory, file, postgres, redis")
	flag.StringVar(&cfg.StoragePath, "p", defaultStoragePath, "directory for the file storage backend")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the postgres storage backend")
	flag.StringVar(&cfg.RedisAddress, "redis", "", "redis address for the redis storage backend")
	flag.Int64Var(&cfg.DeliveryFee, "fee", defaultDeliveryFee, "flat delivery fee for offline orders")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", defaultRequestTimeout, "remote request timeout")
	flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "dev server listen address")
	flag.StringVar(&cfg.JWTSecret, "j", "", "dev server JWT secret")

	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if envCfg.ConfigFile != nil {
		cfg.ConfigFile = *envCfg.ConfigFile
	}
	if strings.TrimSpace(cfg.ConfigFile) != "" {
		fc, err := loadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := applyFile(cfg, fc, explicit); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg, envCfg)

	if cfg.StorageBackend == StorageFile {
		cfg.StoragePath = expandPath(cfg.StoragePath)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: field %s fails %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

func applyFile(cfg *Config, fc *fileConfig, explicit map[string]bool) error {
	setString := func(flagName string, dst *string, v *string) {
		if v != nil && !explicit[flagName] {
			*dst = strings.TrimSpace(*v)
		}
	}

	setString("api", &cfg.APIBaseURL, fc.APIBaseURL)
	setString("s", &cfg.StorageBackend, fc.StorageBackend)
	setString("p", &cfg.StoragePath, fc.StoragePath)
	setString("d", &cfg.DatabaseURI, fc.DatabaseURI)
	setString("redis", &cfg.RedisAddress, fc.RedisAddress)
	setString("l", &cfg.LogLevel, fc.LogLevel)
	setString("a", &cfg.RunAddress, fc.RunAddress)
	setString("j", &cfg.JWTSecret, fc.JWTSecret)

	if fc.DeliveryFee != nil && !explicit["fee"] {
		cfg.DeliveryFee = *fc.DeliveryFee
	}
	if fc.RequestTimeout != nil && !explicit["timeout"] {
		d, err := time.ParseDuration(*fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

func applyEnv(cfg *Config, e envConfig) {
	if e.APIBaseURL != nil && *e.APIBaseURL != "" {
		cfg.APIBaseURL = *e.APIBaseURL
	}
	if e.StorageBackend != nil && *e.StorageBackend != "" {
		cfg.StorageBackend = *e.StorageBackend
	}
	if e.StoragePath != nil && *e.StoragePath != "" {
		cfg.StoragePath = *e.StoragePath
	}
	if e.DatabaseURI != nil && *e.DatabaseURI != "" {
		cfg.DatabaseURI = *e.DatabaseURI
	}
	if e.RedisAddress != nil && *e.RedisAddress != "" {
		cfg.RedisAddress = *e.RedisAddress
	}
	if e.DeliveryFee != nil {
		cfg.DeliveryFee = *e.DeliveryFee
	}
	if e.RequestTimeout != nil {
		cfg.RequestTimeout = *e.RequestTimeout
	}
	if e.LogLevel != nil && *e.LogLevel != "" {
		cfg.LogLevel = *e.LogLevel
	}
	if e.RunAddress != nil && *e.RunAddress != "" {
		cfg.RunAddress = *e.RunAddress
	}
	if e.JWTSecret != nil && *e.JWTSecret != "" {
		cfg.JWTSecret = *e.JWTSecret
	}
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return trimmed
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return trimmed
}
