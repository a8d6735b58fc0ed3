package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// TabData holds the header fields for one tab.
type TabData struct {
	Tab      string
	Account  string
	Liveness string
	Mode     string
	Pending  int
	LastSync time.Time
	Uptime   time.Duration
}

// TabInfo displays tab metadata in the header.
type TabInfo struct {
	*tview.TextView
	theme *Theme
}

// NewTabInfo creates a new tab info panel.
func NewTabInfo(theme *Theme) *TabInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &TabInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the tab info.
func (ti *TabInfo) Update(data *TabData) {
	ti.Clear()
	if data == nil {
		return
	}

	fg := colorName(ti.theme.FgColor)
	counter := colorName(ti.theme.CounterColor)
	net := colorName(ti.theme.OnlineColor)
	if data.Liveness != "ONLINE" {
		net = colorName(ti.theme.OfflineColor)
	}

	account := data.Account
	if account == "" {
		account = "-"
	}
	lastSync := "-"
	if !data.LastSync.IsZero() {
		lastSync = data.LastSync.Local().Format("15:04:05")
	}

	_, _ = fmt.Fprintf(ti,
		"[%s::b]Tab:[-:-:-]      [%s]%s[-]\n"+
			"[%s::b]Account:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Network:[-:-:-]  [%s]%s[-] (%s)\n"+
			"[%s::b]Pending:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Last sync:[-:-:-][%s] %s[-]\n"+
			"[%s::b]Uptime:[-:-:-]   [%s]%s[-]",
		fg, counter, tview.Escape(data.Tab),
		fg, counter, tview.Escape(account),
		fg, net, data.Liveness, data.Mode,
		fg, counter, data.Pending,
		fg, counter, lastSync,
		fg, counter, formatDuration(data.Uptime),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
