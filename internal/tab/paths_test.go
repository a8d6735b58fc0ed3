package tab

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matheus3301/msana/internal/config"
)

func TestPathsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cases := map[string]string{
		"DBPath":     DBPath(),
		"ConfigPath": ConfigPath(),
		"Dir":        Dir("pharmacy"),
		"SocketPath": SocketPath("pharmacy"),
		"LockPath":   LockPath("pharmacy"),
		"StatePath":  StatePath("pharmacy"),
		"LogPath":    LogPath("pharmacy"),
	}
	want := map[string]string{
		"DBPath":     filepath.Join(home, "console.db"),
		"ConfigPath": filepath.Join(home, "config.toml"),
		"Dir":        filepath.Join(home, "tabs", "pharmacy"),
		"SocketPath": filepath.Join(home, "tabs", "pharmacy", "msanad.sock"),
		"LockPath":   filepath.Join(home, "tabs", "pharmacy", "LOCK"),
		"StatePath":  filepath.Join(home, "tabs", "pharmacy", "tab.json"),
		"LogPath":    filepath.Join(home, "tabs", "pharmacy", "logs", "msanad.log"),
	}
	for name, got := range cases {
		if got != want[name] {
			t.Errorf("%s = %q, want %q", name, got, want[name])
		}
	}
}

func TestDefaultBaseDir(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, _ := os.UserHomeDir()
	if got := BaseDir(); got != filepath.Join(home, ".msana") {
		t.Errorf("BaseDir() = %q", got)
	}
}

func TestEnsureDirAndList(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	for _, name := range []string{"ward", "front-desk"} {
		if err := EnsureDir(name); err != nil {
			t.Fatal(err)
		}
	}
	info, err := os.Stat(LogDir("ward"))
	if err != nil || !info.IsDir() {
		t.Fatalf("log dir not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("permissions = %o, want 0700", perm)
	}

	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"front-desk", "ward"}) {
		t.Errorf("List() = %v", names)
	}
}

func TestListWithoutTabs(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	names, err := List()
	if err != nil || len(names) != 0 {
		t.Errorf("List() = %v, %v", names, err)
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if got := Resolve("ward"); got != "ward" {
		t.Errorf("Resolve(flag) = %q", got)
	}
	if got := Resolve(""); got != DefaultTabName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultTabName)
	}

	cfg := config.Default()
	cfg.DefaultTab = "pharmacy"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "pharmacy" {
		t.Errorf("Resolve() = %q, want pharmacy from config", got)
	}
}
