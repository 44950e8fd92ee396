// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"net/http"
	"time"

	"github.com/gogama/inflight/timeout"
)

// LogConfig sets the minimum level of log messages.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error fatal"`
}

// TimeoutConfig holds per-method time bounds. A zero method bound falls
// back to Default, and a zero Default means no bound.
type TimeoutConfig struct {
	Default time.Duration `mapstructure:"default" validate:"min=0s"`
	Get     time.Duration `mapstructure:"get" validate:"min=0s"`
	Head    time.Duration `mapstructure:"head" validate:"min=0s"`
	Post    time.Duration `mapstructure:"post" validate:"min=0s"`
}

// HTTPConfig tunes the HTTP client requests are sent through.
type HTTPConfig struct {
	HTTP2           bool          `mapstructure:"http2"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" validate:"min=0s"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the Prometheus endpoint. Empty
	// disables it.
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// Config is the validated configuration of the inflight command.
type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	Timeouts TimeoutConfig `mapstructure:"timeouts"`
	HTTP     HTTPConfig    `mapstructure:"http"`
	Metrics  MetricsConfig `mapstructure:"metrics"`

	// Concurrency caps the number of blocking requests in flight at
	// once.
	Concurrency int `mapstructure:"concurrency" validate:"required,min=1,max=1024"`
}

// TimeoutPolicy returns the per-method timeout policy described by the
// timeouts section.
func (c *Config) TimeoutPolicy() timeout.Policy {
	m := make(map[string]time.Duration, 3)
	for method, d := range map[string]time.Duration{
		http.MethodGet:  c.Timeouts.Get,
		http.MethodHead: c.Timeouts.Head,
		http.MethodPost: c.Timeouts.Post,
	} {
		if d > 0 {
			m[method] = d
		}
	}
	return timeout.ByMethod(m, c.Timeouts.Default)
}
