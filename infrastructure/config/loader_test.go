package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Address != ":5000" {
		t.Errorf("address = %q, want :5000", cfg.Server.Address)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Handshake.TTL != 10*time.Minute {
		t.Errorf("handshake ttl = %v, want 10m", cfg.Handshake.TTL)
	}
	if cfg.Handshake.SweepInterval != time.Minute {
		t.Errorf("sweep interval = %v, want 1m", cfg.Handshake.SweepInterval)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":8080"
audio:
  bitrate: 320k
storage:
  backend: redis
  redis_address: redis.internal:6379
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Audio.Bitrate != "320k" {
		t.Errorf("bitrate = %q, want 320k", cfg.Audio.Bitrate)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisAddress != "redis.internal:6379" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	// untouched sections keep their defaults
	if cfg.Tools.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg path = %q, want default", cfg.Tools.FFmpegPath)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: etcd\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.Address != ":5000" {
		t.Errorf("address = %q, want default", cfg.Server.Address)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDRESS", "env-redis:6379")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
google:
  client_id: file-client
  client_secret: file-secret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Google.ClientID != "env-client" || cfg.Google.ClientSecret != "env-secret" {
		t.Errorf("env should win over file: %+v", cfg.Google)
	}
	if cfg.Storage.RedisAddress != "env-redis:6379" {
		t.Errorf("redis address = %q, want env value", cfg.Storage.RedisAddress)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Server.Address = ":9999"
	cfg.Google.ClientID = "client-1"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if loaded.Server.Address != ":9999" || loaded.Google.ClientID != "client-1" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}
