// Package config provides shared configuration types for blux.
// This package is decoupled from CLI concerns so that other front ends can
// build sessions from the same settings.
package config

import (
	"fmt"

	"github.com/leapstack-labs/blux/pkg/core"
)

// TargetConfig holds the connection parameters of one backend.
type TargetConfig = core.ConnectionParams

// LoadConfig holds bulk loader settings.
type LoadConfig struct {
	ChunkSize  int    `koanf:"chunk_size" validate:"min=1"`
	ErrorLimit int    `koanf:"error_limit" validate:"min=1"`
	Policy     string `koanf:"policy" validate:"oneof=continue continue-on-error fail-fast failfast abort"`
}

// FailurePolicy parses Policy.
func (c LoadConfig) FailurePolicy() (core.FailurePolicy, error) {
	return core.ParseFailurePolicy(c.Policy)
}

// LogConfig holds log sink settings.
type LogConfig struct {
	File    string `koanf:"file"`
	Level   string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Console bool   `koanf:"console"`
}

// MetricsConfig selects where load metrics go.
type MetricsConfig struct {
	Backend   string            `koanf:"backend" validate:"omitempty,oneof=none prometheus datadog"`
	Gateway   string            `koanf:"gateway" validate:"omitempty,url"`
	Job       string            `koanf:"job"`
	Addr      string            `koanf:"addr"`
	Namespace string            `koanf:"namespace"`
	Tags      map[string]string `koanf:"tags"`
}

// Validate checks that the selected backend has its endpoint.
func (c MetricsConfig) Validate() error {
	switch c.Backend {
	case "prometheus":
		if c.Gateway == "" {
			return fmt.Errorf("metrics.gateway is required for the prometheus backend")
		}
	case "datadog":
		if c.Addr == "" {
			return fmt.Errorf("metrics.addr is required for the datadog backend")
		}
	}
	return nil
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Server     string   `koanf:"server"`
	Port       int      `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Sender     string   `koanf:"sender" validate:"omitempty,email"`
	Receivers  []string `koanf:"receivers" validate:"omitempty,dive,email"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	RequireTLS bool     `koanf:"require_tls"`
}

// Enabled reports whether enough is set to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Server != "" && c.Sender != "" && len(c.Receivers) > 0
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	Webhook string     `koanf:"webhook" validate:"omitempty,url"`
	Title   string     `koanf:"title"`
	SMTP    SMTPConfig `koanf:"smtp"`
}
