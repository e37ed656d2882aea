package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDataDirDefault(t *testing.T) {
	t.Setenv("WEBPCONV_DATA_DIR", "")

	if got := GetDataDir(); got != "./data" {
		t.Errorf("Expected default data dir ./data, got %s", got)
	}
}

func TestConfigDBPathsFollowEnv(t *testing.T) {
	customDir := filepath.Join(t.TempDir(), "webpconv-data")
	t.Setenv("WEBPCONV_DATA_DIR", customDir)

	paths := map[string]string{
		"success.db":     GetSuccessDBPath(),
		"failures.db":    GetFailuresDBPath(),
		"credentials.db": GetCredentialsDBPath(),
		"RunQueue.db":    GetQueueDBPath(),
	}
	for name, got := range paths {
		want := filepath.Join(customDir, name)
		if got != want {
			t.Errorf("Expected %s path %s, got %s", name, want, got)
		}
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("WEBPCONV_ENCODER", "")
	t.Setenv("WEBPCONV_LISTEN_ADDR", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoder != "native" {
		t.Errorf("Expected native encoder, got %s", cfg.Encoder)
	}
	if cfg.Defaults.Quality != 85 || !cfg.Defaults.IncludeSubfolders || cfg.Defaults.OverwriteExisting {
		t.Errorf("Unexpected conversion defaults: %+v", cfg.Defaults)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Publish.Enabled() {
		t.Error("Publishing should be disabled by default")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webpconv.yaml")
	content := `
encoder: cwebp
defaults:
  quality: 70
  max_width: 1920
publish:
  backend: s3
  credentials_key: abc123
  prefix: images/
redis:
  addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WEBPCONV_ENCODER", "")
	t.Setenv("WEBPCONV_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoder != "cwebp" {
		t.Errorf("Expected cwebp encoder from file, got %s", cfg.Encoder)
	}
	if cfg.Defaults.Quality != 70 || cfg.Defaults.MaxWidth != 1920 {
		t.Errorf("Unexpected defaults from file: %+v", cfg.Defaults)
	}
	if !cfg.Defaults.IncludeSubfolders {
		t.Error("Fields missing from the file should keep their defaults")
	}
	if cfg.Publish.Backend != "s3" || cfg.Publish.CredentialsKey != "abc123" || cfg.Publish.Prefix != "images/" {
		t.Errorf("Unexpected publish config: %+v", cfg.Publish)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("Expected env override for redis addr, got %s", cfg.Redis.Addr)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("publish:\n  backend: ftp\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unsupported backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}
