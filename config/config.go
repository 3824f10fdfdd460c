// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// RemoteSchemaMap decodes the remote schema configuration from its JSON
// environment form: {"sourceId": {"action": "...", "order": 10}}.
type RemoteSchemaMap map[string]schema.RemoteSource

func (m *RemoteSchemaMap) Decode(value string) error {
	if value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), m); err != nil {
		return fmt.Errorf("invalid remote schema configuration: %w", err)
	}
	return nil
}

type Config struct {
	LogLevel   string `default:"info" envconfig:"LOG_LEVEL" validate:"oneof=debug info warning error fatal panic"`
	JSONLog    bool   `default:"true" envconfig:"JSON_LOG"`
	ListenAddr string `default:"localhost:3002" envconfig:"LISTEN_ADDR" validate:"hostname_port"`

	// DataSource is the spreadsheet endpoint backing the local catalog.
	DataSource   string `envconfig:"DATASOURCE" validate:"required,url"`
	DefaultStore string `default:"wknd" envconfig:"DEFAULT_STORE" validate:"required"`

	// SchemaCacheTTL enables external schema caching when positive, in
	// seconds. Zero keeps composition process-local.
	SchemaCacheTTL int    `default:"0" envconfig:"SCHEMA_CACHE_TTL" validate:"gte=0"`
	CacheBackend   string `default:"memory" envconfig:"CACHE_BACKEND" validate:"oneof=memory redis"`
	RedisAddr      string `default:"localhost:6379" envconfig:"REDIS_ADDR" validate:"hostname_port"`

	RemoteSchemas RemoteSchemaMap `envconfig:"REMOTE_SCHEMAS"`
}

func LoadConfig(envFilePath string) (*Config, error) {
	_ = godotenv.Load(envFilePath)

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &c, nil
}
