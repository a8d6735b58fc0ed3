package views

import (
	"fmt"

	"github.com/matheus3301/msana/internal/tui/ui"
	"github.com/rivo/tview"
)

// BannerText returns the offline banner line. The banner is hidden while
// online with nothing pending or syncing.
func BannerText(online bool, pending int, syncing bool) (text string, visible bool) {
	hasPending := pending > 0
	if online && !hasPending && !syncing {
		return "", false
	}
	switch {
	case !online:
		text = "Offline: you can create invoices. They'll sync when back online."
	case syncing:
		text = fmt.Sprintf("Syncing %d invoice(s)...", pending)
	default:
		text = fmt.Sprintf("%d invoice(s) pending sync", pending)
	}
	if hasPending && (!online || syncing) {
		text += fmt.Sprintf("  [%d queued]", pending)
	}
	return text, true
}

// Banner is the one-line connectivity banner above the account list.
type Banner struct {
	*tview.TextView
	theme *ui.Theme
}

// NewBanner creates a hidden banner.
func NewBanner(theme *ui.Theme) *Banner {
	tv := tview.NewTextView().SetDynamicColors(false)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.BannerFg)
	return &Banner{TextView: tv, theme: theme}
}

// Update redraws the banner and reports whether it should be shown.
func (b *Banner) Update(online bool, pending int, syncing bool) bool {
	b.Clear()
	text, visible := BannerText(online, pending, syncing)
	if !visible {
		b.SetBackgroundColor(b.theme.BgColor)
		return false
	}
	if online {
		b.SetBackgroundColor(b.theme.BannerPendingBg)
	} else {
		b.SetBackgroundColor(b.theme.BannerOfflineBg)
	}
	_, _ = fmt.Fprint(b, " "+text)
	return true
}
