package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/msana/internal/tui/keys"
	"github.com/matheus3301/msana/internal/tui/model"
	"github.com/matheus3301/msana/internal/tui/ui"
	"github.com/matheus3301/msana/internal/tui/views"
	"github.com/rivo/tview"
)

// RefreshInterval is how often the banner and account list are reloaded.
const RefreshInterval = 5 * time.Second

const callTimeout = 10 * time.Second

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *tview.Pages
	vm       *model.ViewModel
	registry *keys.Registry
	theme    *ui.Theme
	flash    *ui.FlashModel

	tabInfo  *ui.TabInfo
	menu     *ui.Menu
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	banner   *views.Banner
	accounts *views.AccountList
	help     *views.HelpView

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application for one tab.
func NewApp(c model.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		vm:       model.NewViewModel(c),
		registry: keys.NewRegistry(),
		theme:    theme,
		flash:    ui.NewFlashModel(),
		tabInfo:  ui.NewTabInfo(theme),
		menu:     ui.NewMenu(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		banner:   views.NewBanner(theme),
		accounts: views.NewAccountList(theme),
		help:     views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.Add(&keys.Action{
		Key: tcell.KeyEnter, Description: "Switch account",
		Handler: func() {
			if email := a.accounts.Selected(); email != "" {
				a.run(func(ctx context.Context) model.Notice { return a.vm.SwitchAccount(ctx, email) })
			}
		},
	})
	a.registry.Add(&keys.Action{
		Key: tcell.KeyRune, Rune: 's', Description: "Sync now",
		Handler: func() {
			a.run(a.vm.SyncNow)
		},
	})
	a.registry.Add(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Refresh",
		Handler: func() { go a.refresh() },
	})
	a.registry.Add(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command",
		Handler: a.showPrompt,
	})
	a.registry.Add(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help",
		Handler: func() { a.pages.SwitchToPage("help") },
	})
	a.registry.Add(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit",
		Handler: a.Stop,
	})
	a.menu.Update(a.registry.Hints())
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 18, 0, false).
		AddItem(a.tabInfo, 0, 2, false).
		AddItem(a.menu, 0, 1, false)

	a.pages.AddPage("accounts", a.accounts, true, true)
	a.pages.AddPage("help", a.help, true, false)

	a.prompt.SetOnSubmit(func(text string) {
		a.hidePrompt()
		a.execute(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.banner, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}
		if event.Key() == tcell.KeyEscape {
			if page, _ := a.pages.GetFrontPage(); page != "accounts" {
				a.pages.SwitchToPage("accounts")
				a.app.SetFocus(a.accounts)
				return nil
			}
		}
		if a.registry.HandleEvent(event) {
			return nil
		}
		return event
	})
}

func (a *App) showPrompt() {
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.accounts)
}

func (a *App) execute(cmd Command) {
	if err := cmd.Validate(); err != nil {
		a.flash.Err(err)
		a.flashBar.Update(a.flash.Current())
		return
	}
	switch cmd.Name {
	case "switch":
		a.run(func(ctx context.Context) model.Notice { return a.vm.SwitchAccount(ctx, cmd.Args) })
	case "logout":
		a.run(a.vm.Logout)
	case "sync":
		a.run(a.vm.SyncNow)
	case "net":
		a.run(func(ctx context.Context) model.Notice { return a.vm.SetNetwork(ctx, cmd.Args) })
	case "help", "h":
		a.pages.SwitchToPage("help")
	case "quit", "q":
		a.Stop()
	}
}

// run performs an action off the UI goroutine, then flashes its notice and refreshes.
func (a *App) run(action func(context.Context) model.Notice) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		n := action(ctx)
		cancel()
		if n.Error {
			a.flash.Warn(n.Text)
		} else {
			a.flash.Info(n.Text)
		}
		a.refresh()
	}()
}

func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	err := a.vm.Refresh(ctx)
	cancel()
	if err != nil && a.ctx.Err() == nil {
		a.flash.Err(err)
	}
	a.app.QueueUpdateDraw(a.render)
}

func (a *App) render() {
	if st := a.vm.Status(); st != nil {
		data := &ui.TabData{
			Tab:      st.Tab,
			Liveness: st.Liveness,
			Mode:     st.NetworkMode,
			Pending:  st.PendingCount,
			LastSync: st.LastSyncAt,
			Uptime:   time.Duration(st.UptimeMs) * time.Millisecond,
		}
		if st.Account != nil {
			data.Account = st.Account.Email
		}
		a.tabInfo.Update(data)
		if a.banner.Update(st.Online, st.PendingCount, st.IsSyncing) {
			a.root.ResizeItem(a.banner, 1, 0)
		} else {
			a.root.ResizeItem(a.banner, 0, 0)
		}
	}
	a.accounts.Update(a.vm.Accounts(), time.Now())
	a.flashBar.Update(a.flash.Current())
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	go func() {
		a.refresh()
		ticker := time.NewTicker(RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.refresh()
			case <-a.ctx.Done():
				return
			}
		}
	}()
	return a.app.Run()
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
