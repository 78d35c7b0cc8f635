package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.StorePrimary != PrimaryNone {
		t.Errorf("StorePrimary = %q, want none", cfg.StorePrimary)
	}
	if !cfg.DefaultGameVisible {
		t.Error("DefaultGameVisible should default to true")
	}
	if cfg.Celebration != 3*time.Second {
		t.Errorf("Celebration = %v", cfg.Celebration)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	data := "STORE_PRIMARY=sqlite\nDEFAULT_GAME_VISIBLE=false\nDATA_DIR=/tmp/from-file\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	// Already set variables win over the file.
	t.Setenv("DATA_DIR", "/tmp/from-env")
	t.Setenv("STORE_PRIMARY", "")
	os.Unsetenv("STORE_PRIMARY")
	t.Setenv("DEFAULT_GAME_VISIBLE", "")
	os.Unsetenv("DEFAULT_GAME_VISIBLE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorePrimary != PrimarySQLite {
		t.Errorf("StorePrimary = %q, want sqlite", cfg.StorePrimary)
	}
	if cfg.DefaultGameVisible {
		t.Error("DefaultGameVisible should come from the file")
	}
	if cfg.DataDir != "/tmp/from-env" {
		t.Errorf("DataDir = %q, want the environment value", cfg.DataDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown primary", map[string]string{"STORE_PRIMARY": "postgres"}},
		{"password without token", map[string]string{"ADMIN_PASSWORD": "hemmelig"}},
		{"bad duration", map[string]string{"CELEBRATION": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
