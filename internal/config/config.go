// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "kestrel.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	BindAddr        string `yaml:"bindAddr"                                          split_words:"true"`
	Port            uint   `yaml:"port"            envconfig:"port"`
	MetricsPort     uint   `yaml:"metricsPort"                                       split_words:"true"`
	DatabasePath    string `yaml:"databasePath"                                      split_words:"true"`
	NodeURL         string `yaml:"nodeUrl"         envconfig:"KESTREL_NODE_URL"`
	ExpireInSeconds int    `yaml:"expireInSeconds" envconfig:"KESTREL_EXPIRE_IN_SECONDS"`
	RetryAttempts   int    `yaml:"retryAttempts"   envconfig:"KESTREL_RETRY_ATTEMPTS"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                   split_words:"true"`
}

var globalConfig = &Config{
	BindAddr:        "0.0.0.0",
	Port:            5000,
	MetricsPort:     12798,
	DatabasePath:    ".kestrel",
	NodeURL:         "http://localhost:8090",
	ExpireInSeconds: 0,
	RetryAttempts:   5,
	ShutdownTimeout: DefaultShutdownTimeout,
}

// LoadConfig loads configuration from an optional YAML file and then
// overlays environment variables. With no explicit file it probes
// ~/.kestrel/kestrel.yaml and /etc/kestrel/kestrel.yaml.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".kestrel", "kestrel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/kestrel/kestrel.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("kestrel", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if globalConfig.RetryAttempts <= 0 {
		return nil, fmt.Errorf(
			"invalid retryAttempts: %d (must be positive)",
			globalConfig.RetryAttempts,
		)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
