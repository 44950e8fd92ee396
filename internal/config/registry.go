// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override config
// keys, e.g. INFLIGHT_TIMEOUTS_GET for timeouts.get.
const EnvPrefix = "INFLIGHT"

// Registry loads Config from defaults, a config file, the environment
// and bound flags, in increasing order of precedence.
type Registry struct {
	v        *viper.Viper
	validate *validator.Validate

	mu  sync.Mutex
	cfg *Config
}

// NewRegistry returns a Registry holding the default configuration.
func NewRegistry() *Registry {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("timeouts.default", "10s")
	v.SetDefault("timeouts.get", "0s")
	v.SetDefault("timeouts.head", "0s")
	v.SetDefault("timeouts.post", "0s")
	v.SetDefault("http.http2", true)
	v.SetDefault("http.idle_conn_timeout", "90s")
	v.SetDefault("http.max_idle_conns", 100)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("concurrency", 8)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Registry{
		v:        v,
		validate: validator.New(),
	}
}

// BindFlag makes a command line flag override the config key when the
// flag is set.
func (r *Registry) BindFlag(key string, flag *pflag.Flag) error {
	return r.v.BindPFlag(key, flag)
}

// LoadConfig reads cfgFile, or $HOME/.inflight/config.yaml if cfgFile
// is empty, and returns the validated configuration. A missing default
// file is not an error; a missing explicit file is.
func (r *Registry) LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		r.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		r.v.AddConfigPath(filepath.Join(home, ".inflight"))
		r.v.SetConfigName("config")
		r.v.SetConfigType("yaml")
	}

	if err := r.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := r.decode()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return cfg, nil
}

// Watch calls fn with the new configuration each time the config file
// changes and still validates. Changes that fail validation are passed
// to onError and otherwise ignored. Watch does nothing if no config file
// was read.
func (r *Registry) Watch(fn func(*Config), onError func(error)) {
	if r.v.ConfigFileUsed() == "" {
		return
	}

	r.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := r.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("config file %s changed: %w", e.Name, err))
			}
			return
		}
		r.mu.Lock()
		r.cfg = cfg
		r.mu.Unlock()
		fn(cfg)
	})
	r.v.WatchConfig()
}

// Config returns the most recently loaded configuration.
func (r *Registry) Config() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// ConfigFile returns the path of the config file read, or "" if none.
func (r *Registry) ConfigFile() string {
	return r.v.ConfigFileUsed()
}

func (r *Registry) decode() (*Config, error) {
	var cfg Config

	if err := r.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := r.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("error on validating config: %w", err)
	}

	return &cfg, nil
}
