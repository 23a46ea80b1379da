// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

// Package config loads service configuration from a YAML file with
// command-line flag overrides. The result is a plain struct injected into
// constructors; business logic never does ambient lookups.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults applied before the file and flags are merged in.
var defaults = map[string]any{
	"listen_addr":          ":8080",
	"observability_addr":   ":9100",
	"log_format":           "json",
	"subject_prefix":       "notification",
	"token.access_expiry":  15 * time.Minute,
	"token.refresh_expiry": 7 * 24 * time.Hour,
	"cookie_max_age":       7 * 24 * time.Hour,
}

// TokenConfig holds the JWT secrets and expiry windows. The two tokens are
// signed with independent secrets.
type TokenConfig struct {
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	AccessExpiry  time.Duration `koanf:"access_expiry"`
	RefreshExpiry time.Duration `koanf:"refresh_expiry"`
}

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr        string        `koanf:"listen_addr"`
	ObservabilityAddr string        `koanf:"observability_addr"`
	DatabaseURL       string        `koanf:"database_url"`
	NATSURL           string        `koanf:"nats_url"`
	SubjectPrefix     string        `koanf:"subject_prefix"`
	FrontendOrigin    string        `koanf:"frontend_origin"`
	LogFormat         string        `koanf:"log_format"`
	CookieMaxAge      time.Duration `koanf:"cookie_max_age"`
	Token             TokenConfig   `koanf:"token"`
	Google            GoogleConfig  `koanf:"google"`
}

// Load reads the configuration: defaults, then the YAML file at path (if
// given), then flag overrides.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use hyphens, config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	if c.Token.AccessSecret == "" || c.Token.RefreshSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("token secrets are required")
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return oops.Code("CONFIG_INVALID").Errorf("access and refresh secrets must differ")
	}
	return nil
}
