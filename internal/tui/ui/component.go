package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// colorName returns a tview-compatible color name string.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}

// ColorName is colorName for the views package.
func ColorName(c tcell.Color) string {
	return colorName(c)
}
