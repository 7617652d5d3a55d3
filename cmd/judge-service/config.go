package main

import (
	"errors"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v3"
	"gopkg.in/yaml.v3"

	"sqldrill/internal/common/cache"
	"sqldrill/internal/common/db"
	"sqldrill/pkg/utils/logger"
)

// Config is the full judge service configuration.
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Log    logger.Config `yaml:"log"`

	// MainDatabase holds problems, fixtures, and the progress ledger.
	MainDatabase db.PostgreSQLConfig `yaml:"mainDatabase"`

	// Sandboxes are the scratch databases rebuilt on every submission.
	SandboxPostgreSQL db.PostgreSQLConfig `yaml:"sandboxPostgresql"`
	SandboxMySQL      db.MySQLConfig      `yaml:"sandboxMysql"`

	Redis        cache.RedisConfig `yaml:"redis"`
	CacheEnabled bool              `yaml:"cacheEnabled"`

	Judge JudgeConfig `yaml:"judge"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

type JudgeConfig struct {
	// StatementTimeout bounds one practice query inside the engine.
	StatementTimeout time.Duration `yaml:"statementTimeout"`
}

func (c *JudgeConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.StatementTimeout, validation.Min(time.Second)),
	)
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Judge.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(
		c,
		validation.Field(&c.MainDatabase, validation.Required, validation.By(requireDSN)),
		validation.Field(&c.SandboxPostgreSQL, validation.By(requireDSN)),
	)
}

func requireDSN(value interface{}) error {
	cfg, ok := value.(db.PostgreSQLConfig)
	if ok && cfg.DSN == "" {
		return errors.New("dsn is required")
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Judge.StatementTimeout == 0 {
		c.Judge.StatementTimeout = 10 * time.Second
	}

	// Sandbox pools run with a single connection so one submission cannot
	// observe another's schema.
	if c.SandboxPostgreSQL.MaxOpenConnections == 0 {
		c.SandboxPostgreSQL.MaxOpenConnections = 1
	}
	if c.SandboxMySQL.MaxOpenConnections == 0 {
		c.SandboxMySQL.MaxOpenConnections = 1
	}
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
