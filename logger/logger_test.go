package logger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestNewKeepsServiceName(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"json", Config{Level: "debug", Format: "json", Output: "stdout"}},
		{"console", Config{Level: "info", Format: "console", Output: "stdout", NoColor: true}},
		{"text alias", Config{Level: "info", Format: "text", Output: "stdout"}},
		{"stderr", Config{Level: "warn", Format: "json", Output: "stderr"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := New(&tc.cfg, "billing")
			if l == nil {
				t.Fatal("expected non-nil logger")
			}
			if l.service != "billing" {
				t.Errorf("expected service 'billing', got %q", l.service)
			}
		})
	}
}

func TestNewInvalidLevelFallsBack(t *testing.T) {
	l := New(&Config{Level: "shouting", Format: "json", Output: "stdout"}, "svc")
	if l == nil {
		t.Fatal("an invalid level must not prevent logger creation")
	}
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("user-service")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "user-service" {
		t.Errorf("expected service 'user-service', got %q", l.service)
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "LOG_NO_COLOR", "LOG_TIMESTAMP"} {
		os.Unsetenv(k)
	}
	if l := NewFromEnv("defaults-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponentPreservesService(t *testing.T) {
	l := NewDefault("test")
	cl := l.WithComponent("registry")
	if cl == nil {
		t.Fatal("expected non-nil logger")
	}
	if cl.service != "test" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
	if cl == l {
		t.Error("WithComponent should return a derived logger, not the receiver")
	}
}

func TestWithContextNoSpan(t *testing.T) {
	l := NewDefault("test")
	if cl := l.WithContext(context.Background()); cl != l {
		t.Error("a context without a span should return the logger unchanged")
	}
}

func TestWithContextActiveSpan(t *testing.T) {
	l := NewDefault("test")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	cl := l.WithContext(ctx)
	if cl == nil {
		t.Fatal("expected non-nil logger")
	}
	if cl == l {
		t.Error("a context with a valid span should derive a new logger")
	}
}

func TestWithFields(t *testing.T) {
	l := NewDefault("test")
	if fl := l.WithFields(map[string]interface{}{"key": "value"}); fl == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithError(t *testing.T) {
	l := NewDefault("test")
	if el := l.WithError(fmt.Errorf("probe failed")); el == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInitSetsGlobal(t *testing.T) {
	Init(&Config{Level: "info", Format: "console", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerLazyDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to install the logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(&Config{Level: "debug", Format: "console", Output: "stdout"})
	Debug("probe completed")
	Info("service registered")
	Warn("service became unhealthy")
	Error("probe failed")
	if WithContext(context.Background()) == nil {
		t.Fatal("expected non-nil logger from WithContext")
	}
	if WithComponent("registry") == nil {
		t.Fatal("expected non-nil logger from WithComponent")
	}
}

func TestGetLoggerZ(t *testing.T) {
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	_ = GetLoggerZ()
	_ = NewDefault("test").GetLogger()
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregisteredFallsBack(t *testing.T) {
	if Get("never-registered") == nil {
		t.Fatal("Get must never return nil")
	}
}

func TestRegisterDefaults(t *testing.T) {
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	RegisterDefaults("registry", "scheduler", "shutdown")

	for _, name := range []string{"registry", "scheduler", "shutdown"} {
		if Get(name) == nil {
			t.Errorf("expected non-nil logger for %q", name)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{
			"key-value pairs",
			[]interface{}{"op", "register", "port", 8080},
			map[string]interface{}{"op": "register", "port": 8080},
		},
		{
			"odd number of args",
			[]interface{}{"op", "register", "trailing"},
			map[string]interface{}{"op": "register"},
		},
		{
			"empty",
			[]interface{}{},
			map[string]interface{}{},
		},
		{
			"non-string key skipped",
			[]interface{}{123, "value", "key", "val"},
			map[string]interface{}{"key": "val"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("register-service", fmt.Errorf("something broke"))

	if fields[FieldOperation] != "register-service" {
		t.Errorf("expected operation 'register-service', got %v", fields[FieldOperation])
	}
	if fields[FieldError] != "something broke" {
		t.Errorf("expected error 'something broke', got %v", fields[FieldError])
	}
}

func TestDurationFields(t *testing.T) {
	fields := DurationFields("probe", 150*time.Millisecond)

	if fields[FieldOperation] != "probe" {
		t.Errorf("expected operation 'probe', got %v", fields[FieldOperation])
	}
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	err := fmt.Errorf("test error")

	fields := map[string]interface{}{"op": "probe"}
	result := MergeWithError(fields, err)
	if result[FieldError] != "test error" {
		t.Errorf("expected error field, got %v", result[FieldError])
	}
	if result["op"] != "probe" {
		t.Error("expected existing fields to be preserved")
	}

	if got := MergeWithError(nil, err); got[FieldError] != "test error" {
		t.Errorf("expected error field from nil map, got %v", got[FieldError])
	}
}

func TestMergeWithDuration(t *testing.T) {
	fields := map[string]interface{}{"op": "probe"}
	result := MergeWithDuration(fields, 200*time.Millisecond)
	if result[FieldDuration] != int64(200) {
		t.Errorf("expected duration 200, got %v", result[FieldDuration])
	}
	if result["op"] != "probe" {
		t.Error("expected existing fields to be preserved")
	}

	if got := MergeWithDuration(nil, 200*time.Millisecond); got[FieldDuration] != int64(200) {
		t.Errorf("expected duration from nil map, got %v", got[FieldDuration])
	}
}
