package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEvent(t *testing.T) {
	r := NewRegistry()
	var synced, quit int
	r.Add(&Action{Key: tcell.KeyRune, Rune: 's', Description: "Sync now", Handler: func() { synced++ }})
	r.Add(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Handler: func() { quit++ }})

	if !r.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone)) {
		t.Fatal("expected 's' to match")
	}
	if r.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Fatal("'x' should not match")
	}
	if synced != 1 || quit != 0 {
		t.Fatalf("synced=%d quit=%d", synced, quit)
	}
}

func TestAddReplacesSameKey(t *testing.T) {
	r := NewRegistry()
	var got string
	r.Add(&Action{Key: tcell.KeyRune, Rune: 'r', Description: "Old", Handler: func() { got = "old" }})
	r.Add(&Action{Key: tcell.KeyRune, Rune: 'r', Description: "Refresh", Handler: func() { got = "new" }})

	r.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	if got != "new" {
		t.Fatalf("got %q, want new", got)
	}
	hints := r.Hints()
	if len(hints) != 1 || hints[0].Key != "r" || hints[0].Description != "Refresh" {
		t.Fatalf("unexpected hints %+v", hints)
	}
}

func TestHintsUseKeyNames(t *testing.T) {
	r := NewRegistry()
	r.Add(&Action{Key: tcell.KeyEnter, Description: "Switch account", Handler: func() {}})
	r.Add(&Action{Key: tcell.KeyRune, Rune: ':', Label: ":", Description: "Command", Handler: func() {}})
	r.Add(&Action{Key: tcell.KeyRune, Rune: 'z', Handler: func() {}})

	hints := r.Hints()
	if len(hints) != 2 {
		t.Fatalf("hidden binding listed: %+v", hints)
	}
	if hints[0].Key != "Enter" || hints[1].Key != ":" {
		t.Fatalf("unexpected hints %+v", hints)
	}
}
