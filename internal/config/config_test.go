package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		BindAddr:        "0.0.0.0",
		Port:            5000,
		MetricsPort:     12798,
		DatabasePath:    ".kestrel",
		NodeURL:         "http://localhost:8090",
		ExpireInSeconds: 0,
		RetryAttempts:   5,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
bindAddr: "127.0.0.1"
port: 8080
metricsPort: 8088
databasePath: "/var/lib/kestrel"
nodeUrl: "http://node:8090"
expireInSeconds: 120
retryAttempts: 7
shutdownTimeout: "15s"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-kestrel.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		BindAddr:        "127.0.0.1",
		Port:            8080,
		MetricsPort:     8088,
		DatabasePath:    "/var/lib/kestrel",
		NodeURL:         "http://node:8090",
		ExpireInSeconds: 120,
		RetryAttempts:   7,
		ShutdownTimeout: "15s",
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	expected := &Config{
		BindAddr:        "0.0.0.0",
		Port:            5000,
		MetricsPort:     12798,
		DatabasePath:    ".kestrel",
		NodeURL:         "http://localhost:8090",
		ExpireInSeconds: 0,
		RetryAttempts:   5,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_InvalidRetryAttempts(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
retryAttempts: 0
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-retry.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(tmpFile); err == nil {
		t.Error("expected error for non-positive retryAttempts")
	}
}

func TestConfigContext(t *testing.T) {
	resetGlobalConfig()

	ctx := WithContext(t.Context(), globalConfig)
	if got := FromContext(ctx); got != globalConfig {
		t.Errorf("expected config from context, got: %+v", got)
	}
	if got := FromContext(t.Context()); got != nil {
		t.Errorf("expected nil config from empty context, got: %+v", got)
	}
}
