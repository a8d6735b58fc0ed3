package views

import (
	"time"

	domain "github.com/matheus3301/msana/internal/model"
	"github.com/matheus3301/msana/internal/tui/ui"
	"github.com/rivo/tview"
)

// AccountList is the account switcher table.
type AccountList struct {
	*tview.Table
	theme    *ui.Theme
	accounts []domain.AccountSummary
}

// NewAccountList creates an empty account table.
func NewAccountList(theme *ui.Theme) *AccountList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Accounts ")
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcellStyle(theme))

	return &AccountList{Table: table, theme: theme}
}

// Update refreshes the table, keeping the cursor on the same account if it is still listed.
func (al *AccountList) Update(accounts []domain.AccountSummary, now time.Time) {
	selected := al.Selected()
	al.accounts = accounts
	al.Clear()

	for col, title := range []string{" ", " Email", " Name", " Role", " Last used", " Token"} {
		al.SetCell(0, col, tview.NewTableCell(title).
			SetSelectable(false).
			SetTextColor(al.theme.TableHeaderFg))
	}

	cursor := 1
	for i, a := range accounts {
		row := i + 1
		marker := " "
		if a.Active {
			marker = "*"
		}
		al.SetCell(row, 0, tview.NewTableCell(marker))
		al.SetCell(row, 1, tview.NewTableCell(" "+a.User.Email).SetExpansion(2))
		al.SetCell(row, 2, tview.NewTableCell(" "+a.User.Name).SetMaxWidth(24).SetExpansion(1))
		al.SetCell(row, 3, tview.NewTableCell(" "+a.User.Role).SetMaxWidth(14))
		al.SetCell(row, 4, tview.NewTableCell(" "+formatLastUsed(a.LastUsed, now)).SetMaxWidth(12))
		al.SetCell(row, 5, tview.NewTableCell(" "+tokenState(a.TokenExpiresAt, now)).SetMaxWidth(10))
		if a.User.Email == selected {
			cursor = row
		}
	}
	if len(accounts) > 0 {
		al.Select(cursor, 0)
	}
}

// Selected returns the email under the cursor.
func (al *AccountList) Selected() string {
	row, _ := al.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(al.accounts) {
		return al.accounts[idx].User.Email
	}
	return ""
}

func formatLastUsed(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func tokenState(exp, now time.Time) string {
	switch {
	case exp.IsZero():
		return "-"
	case now.After(exp):
		return "expired"
	default:
		return "valid"
	}
}
