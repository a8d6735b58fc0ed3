// Package tab locates the files of a console tab on disk.
package tab

import (
	"os"
	"path/filepath"
	"sort"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "MSANA_HOME"

// BaseDir returns ~/.msana, or $MSANA_HOME.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".msana")
}

// DBPath returns the database shared by every tab.
func DBPath() string {
	return filepath.Join(BaseDir(), "console.db")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// TabsDir returns the directory holding one subdirectory per tab.
func TabsDir() string {
	return filepath.Join(BaseDir(), "tabs")
}

// Dir returns the tab-specific directory.
func Dir(name string) string {
	return filepath.Join(TabsDir(), name)
}

// SocketPath returns the UDS socket path for a tab.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "msanad.sock")
}

// LockPath returns the lock file path for a tab.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// StatePath returns the tab-scoped state file (tab identity, active account).
func StatePath(name string) string {
	return filepath.Join(Dir(name), "tab.json")
}

// LogDir returns the log directory for a tab.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "msanad.log")
}

// EnsureDir creates the tab directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// List returns the names of tabs that have a directory, sorted.
func List() ([]string, error) {
	entries, err := os.ReadDir(TabsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
