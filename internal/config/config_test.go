package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultTab = "pharmacy"
	cfg.LeaseTTL = Duration{10 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultTab != "pharmacy" {
		t.Errorf("DefaultTab = %q, want %q", loaded.DefaultTab, "pharmacy")
	}
	if loaded.LeaseTTL.Duration != 10*time.Second {
		t.Errorf("LeaseTTL = %s, want 10s", loaded.LeaseTTL)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "api_url = \"https://billing.example/api\"\nsync_startup_delay = \"500ms\"\nclear_identity_on_fresh_navigation = false\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://billing.example/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.SyncStartupDelay.Duration != 500*time.Millisecond {
		t.Errorf("SyncStartupDelay = %s, want 500ms", cfg.SyncStartupDelay)
	}
	if cfg.ClearIdentityOnFreshNavigation {
		t.Error("ClearIdentityOnFreshNavigation = true, want false from file")
	}
	if cfg.LeaseTTL.Duration != 8*time.Second || cfg.HeartbeatInterval.Duration != 4*time.Second {
		t.Errorf("lease defaults = %s/%s, want 8s/4s", cfg.LeaseTTL, cfg.HeartbeatInterval)
	}
	if cfg.SyncRatePerSecond != 5 {
		t.Errorf("SyncRatePerSecond = %v, want 5", cfg.SyncRatePerSecond)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("lease_ttl = \"eight seconds\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unparsable duration")
	}
}

func TestLoadRejectsHeartbeatNotShorterThanTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("lease_ttl = \"4s\"\nheartbeat_interval = \"4s\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error when heartbeat_interval >= lease_ttl")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != Default().APIURL {
		t.Errorf("APIURL = %q, want default", cfg.APIURL)
	}
}

func TestSaveFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}
