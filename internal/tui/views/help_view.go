package views

import (
	"fmt"

	"github.com/matheus3301/msana/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)

	_, _ = fmt.Fprintf(hv, `
  [::b]Keys[-:-:-]

  [%[1]s]Enter[-:-:-]  Switch to the selected account
  [%[1]s]s[-:-:-]      Sync queued invoices now
  [%[1]s]r[-:-:-]      Refresh
  [%[1]s]:[-:-:-]      Command mode
  [%[1]s]?[-:-:-]      Help
  [%[1]s]Esc[-:-:-]    Back
  [%[1]s]q[-:-:-]      Quit

  [::b]Commands[-:-:-]

  [%[1]s]:switch <email>[-:-:-]            Switch account
  [%[1]s]:logout[-:-:-]                    Log out of the active account
  [%[1]s]:sync[-:-:-]                      Sync queued invoices
  [%[1]s]:net online|offline|auto[-:-:-]   Force or release the network state
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]                Quit
`, kc)
}
