package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := Config{}
		cfg.Name = "svc"
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := Config{}
		cfg.Name = "svc"
		cfg.Environment = "production"
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("registry and shutdown defaults", func(t *testing.T) {
		cfg := Config{}
		cfg.Name = "svc"
		cfg.ApplyDefaults()
		if cfg.Registry.HealthCheckIntervalMS != DefaultHealthCheckIntervalMS {
			t.Errorf("expected interval %d, got %d", DefaultHealthCheckIntervalMS, cfg.Registry.HealthCheckIntervalMS)
		}
		if cfg.Registry.UnhealthyThresholdMS != DefaultUnhealthyThresholdMS {
			t.Errorf("expected threshold %d, got %d", DefaultUnhealthyThresholdMS, cfg.Registry.UnhealthyThresholdMS)
		}
		if cfg.Registry.DefaultHost != DefaultServiceHost {
			t.Errorf("expected host %q, got %q", DefaultServiceHost, cfg.Registry.DefaultHost)
		}
		if cfg.Shutdown.TimeoutMS != DefaultShutdownTimeoutMS {
			t.Errorf("expected timeout %d, got %d", DefaultShutdownTimeoutMS, cfg.Shutdown.TimeoutMS)
		}
	})

	t.Run("explicit values preserved", func(t *testing.T) {
		cfg := Config{}
		cfg.Name = "svc"
		cfg.Registry.HealthCheckIntervalMS = 5000
		cfg.Registry.DefaultHost = "10.0.0.5"
		cfg.Shutdown.TimeoutMS = 15000
		cfg.ApplyDefaults()
		if cfg.Registry.HealthCheckIntervalMS != 5000 {
			t.Errorf("expected interval 5000, got %d", cfg.Registry.HealthCheckIntervalMS)
		}
		if cfg.Registry.DefaultHost != "10.0.0.5" {
			t.Errorf("expected host 10.0.0.5, got %q", cfg.Registry.DefaultHost)
		}
		if cfg.Shutdown.TimeoutMS != 15000 {
			t.Errorf("expected timeout 15000, got %d", cfg.Shutdown.TimeoutMS)
		}
	})
}

func TestConfigDurationAccessors(t *testing.T) {
	cfg := Config{}
	cfg.Registry.HealthCheckIntervalMS = 10000
	cfg.Registry.UnhealthyThresholdMS = 30000
	cfg.Shutdown.TimeoutMS = 15000

	if cfg.Registry.HealthCheckInterval() != 10*time.Second {
		t.Errorf("expected 10s, got %v", cfg.Registry.HealthCheckInterval())
	}
	if cfg.Registry.UnhealthyThreshold() != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Registry.UnhealthyThreshold())
	}
	if cfg.Shutdown.Timeout() != 15*time.Second {
		t.Errorf("expected 15s, got %v", cfg.Shutdown.Timeout())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{"valid development", func(c *Config) {}, false, ""},
		{"valid production", func(c *Config) { c.Environment = "production" }, false, ""},
		{"missing name", func(c *Config) { c.Name = "" }, true, "name"},
		{"invalid environment", func(c *Config) { c.Environment = "invalid" }, true, "environment"},
		{"negative interval", func(c *Config) { c.Registry.HealthCheckIntervalMS = -1 }, true, "health_check_interval"},
		{"negative shutdown timeout", func(c *Config) { c.Shutdown.TimeoutMS = -5 }, true, "timeout_ms"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Name = "svc"
			cfg.ApplyDefaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: notification
environment: staging
version: "1.0.0"
registry:
  health_check_interval: 5000
  unhealthy_threshold: 20000
  default_host: "10.1.2.3"
shutdown:
  timeout_ms: 12000
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load("notification", WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "notification" {
		t.Errorf("expected name 'notification', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Registry.HealthCheckIntervalMS != 5000 {
		t.Errorf("expected interval 5000, got %d", cfg.Registry.HealthCheckIntervalMS)
	}
	if cfg.Registry.DefaultHost != "10.1.2.3" {
		t.Errorf("expected host 10.1.2.3, got %q", cfg.Registry.DefaultHost)
	}
	if cfg.Shutdown.TimeoutMS != 12000 {
		t.Errorf("expected shutdown timeout 12000, got %d", cfg.Shutdown.TimeoutMS)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	os.Setenv(EnvHealthCheckInterval, "2500")
	os.Setenv(EnvUnhealthyThreshold, "9000")
	os.Setenv(EnvShutdownTimeout, "4000")
	os.Setenv(EnvServiceHost, "192.168.1.10")
	defer func() {
		os.Unsetenv(EnvHealthCheckInterval)
		os.Unsetenv(EnvUnhealthyThreshold)
		os.Unsetenv(EnvShutdownTimeout)
		os.Unsetenv(EnvServiceHost)
	}()

	cfg, err := Load("env-svc")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Registry.HealthCheckIntervalMS != 2500 {
		t.Errorf("expected interval 2500, got %d", cfg.Registry.HealthCheckIntervalMS)
	}
	if cfg.Registry.UnhealthyThresholdMS != 9000 {
		t.Errorf("expected threshold 9000, got %d", cfg.Registry.UnhealthyThresholdMS)
	}
	if cfg.Shutdown.TimeoutMS != 4000 {
		t.Errorf("expected shutdown timeout 4000, got %d", cfg.Shutdown.TimeoutMS)
	}
	if cfg.Registry.DefaultHost != "192.168.1.10" {
		t.Errorf("expected host from SERVICE_HOST, got %q", cfg.Registry.DefaultHost)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	cfg, err := Load("bare-svc", WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected Load to succeed without files, got %v", err)
	}
	if cfg.Name != "bare-svc" {
		t.Errorf("expected service name as fallback, got %q", cfg.Name)
	}
	if cfg.Registry.HealthCheckIntervalMS != DefaultHealthCheckIntervalMS {
		t.Errorf("expected default interval, got %d", cfg.Registry.HealthCheckIntervalMS)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/my-svc/config.yml": true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./cmd/my-svc/config.yml" {
		t.Errorf("expected config file at ./cmd/my-svc/config.yml, got %q", files.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestWithFileSystemOption(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
}

func TestWithConfigFileOption(t *testing.T) {
	var lc LoaderConfig
	WithConfigFile("/path/to/config.yml")(&lc)
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
}

func TestWithEnvFileOption(t *testing.T) {
	var lc LoaderConfig
	WithEnvFile("/path/to/.env")(&lc)
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("REGISTRY_HEALTH_CHECK_INTERVAL")

	want := map[string]bool{
		"registry_health_check_interval": false,
		"registry.health_check_interval": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected variant %q to be generated", k)
		}
	}
}

func TestValidateStructFieldDetails(t *testing.T) {
	cfg := &Config{}
	cfg.Environment = "development"
	cfg.Logging.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("expected message naming the field, got %q", err.Error())
	}
}
