/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		bind:            "0.0.0.0",
		port:            8080,
		historyLimit:    50,
		defaultPollTime: 60 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, true},
		{"cert and key", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"zero history limit", func(c *Config) { c.historyLimit = 0 }, true},
		{"sub-second poll time", func(c *Config) { c.defaultPollTime = 500 * time.Millisecond }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	if cfg.scheme() != "http" {
		t.Errorf("expected http, got %s", cfg.scheme())
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if cfg.scheme() != "https" {
		t.Errorf("expected https, got %s", cfg.scheme())
	}
}
