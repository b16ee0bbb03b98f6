package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "GEMINI_MODEL", "KIOSK_ACCESS_CODE", "JWT_SECRET",
		"ORDER_RETENTION", "SESSION_IDLE_TIMEOUT", "RESUME_TIMEOUT", "MONGODB_DATABASE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Expected port %s, got %s", DefaultPort, cfg.Port)
	}
	if cfg.GeminiModel != DefaultModel {
		t.Errorf("Expected model %s, got %s", DefaultModel, cfg.GeminiModel)
	}
	if cfg.OrderRetention != 720*time.Hour {
		t.Errorf("Expected 720h retention, got %v", cfg.OrderRetention)
	}
	if cfg.ResumeTimeout != 2*time.Second {
		t.Errorf("Expected 2s resume timeout, got %v", cfg.ResumeTimeout)
	}
	if cfg.MongoDatabase != DefaultDatabase {
		t.Errorf("Expected database %s, got %s", DefaultDatabase, cfg.MongoDatabase)
	}
	if cfg.Development() || cfg.AuthEnabled() {
		t.Error("Expected production without auth")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	os.Unsetenv("PORT")
	os.Unsetenv("SESSION_IDLE_TIMEOUT")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=9090\nSESSION_IDLE_TIMEOUT=90s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.SessionIdleTimeout != 90*time.Second {
		t.Errorf("Expected 90s, got %v", cfg.SessionIdleTimeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"RESUME_TIMEOUT": "soon"}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"access code without secret", map[string]string{"KIOSK_ACCESS_CODE": "1234", "JWT_SECRET": ""}},
		{"zero idle timeout", map[string]string{"SESSION_IDLE_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
