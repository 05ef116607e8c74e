package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("identifier", ValidateIdentifier)

	if err := validate.Struct(c); err != nil {
		return err
	}

	return nil
}

func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.session_days", 7)
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("webp.redirect", "temporary")
	v.SetDefault("webp.options", "format=webp,quality=80,fit=contain")
	v.SetDefault("catalog.strategy", "sql")
	v.SetDefault("backend.strategy", "telegram")
	v.SetDefault("cache.entries", 256)
	v.SetDefault("cache.max_entry_bytes", 10<<20)
	v.SetDefault("cache.ttl_hours", 24)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
