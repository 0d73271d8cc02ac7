// Package config loads the demo CLI configuration from a yaml file and
// STREAMKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL string `mapstructure:"base_url"`
	AgentID string `mapstructure:"agent_id"`

	// Exactly one auth scheme is used; client_key wins when several are set.
	ClientKey string `mapstructure:"client_key"`
	Bearer    string `mapstructure:"bearer_token"`
	BasicUser string `mapstructure:"basic_user"`
	BasicPass string `mapstructure:"basic_pass"`

	Kind        string `mapstructure:"kind"` // "talk" or "clip"
	SourceURL   string `mapstructure:"source_url"`
	PresenterID string `mapstructure:"presenter_id"`
	DriverID    string `mapstructure:"driver_id"`
	Warmup      bool   `mapstructure:"stream_warmup"`

	Debug bool `mapstructure:"debug"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv("STREAMKIT_CONFIG")
	}
	if path == "" {
		path = "streamkit.yaml"
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("STREAMKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; bind each one so an
	// env-only setup works without a config file.
	for _, key := range []string{
		"base_url", "agent_id",
		"client_key", "bearer_token", "basic_user", "basic_pass",
		"kind", "source_url", "presenter_id", "driver_id", "stream_warmup",
		"debug",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("kind", "talk")
	v.SetDefault("debug", false)

	// Env-only operation is fine; a missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base_url is required")
	}
	if cfg.AgentID == "" {
		return nil, errors.New("agent_id is required")
	}
	return &cfg, nil
}
