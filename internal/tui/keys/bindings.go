package keys

import (
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/msana/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string
	Description string
	Handler     func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings in registration order.
type Registry struct {
	actions []*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a binding. A later binding for the same key replaces the earlier one.
func (r *Registry) Add(action *Action) {
	r.actions = slices.DeleteFunc(r.actions, func(a *Action) bool {
		return a.Key == action.Key && a.Rune == action.Rune
	})
	r.actions = append(r.actions, action)
}

// Hints returns the menu hints in registration order.
func (r *Registry) Hints() []ui.MenuHint {
	hints := make([]ui.MenuHint, 0, len(r.actions))
	for _, a := range r.actions {
		if a.Description == "" {
			continue
		}
		hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
	}
	return hints
}

// HandleEvent runs the action bound to ev. Returns true if one matched.
func (r *Registry) HandleEvent(ev *tcell.EventKey) bool {
	for _, a := range r.actions {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
