package tab

import "github.com/matheus3301/msana/internal/config"

const DefaultTabName = "main"

// Resolve determines the tab name using precedence:
// 1. flagOverride (--tab flag)
// 2. config.toml default_tab
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultTab != "" {
		return cfg.DefaultTab
	}
	return DefaultTabName
}
