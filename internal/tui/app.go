// Package tui is the terminal client for a running bridge daemon.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wabridge/internal/tui/keys"
	"github.com/matheus3301/wabridge/internal/tui/model"
	"github.com/matheus3301/wabridge/internal/tui/ui"
	"github.com/matheus3301/wabridge/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageChats  = "chats"
	pageChat   = "chat"
	pageSearch = "search"
	pageAuth   = "auth"

	refreshInterval = 3 * time.Second
	callTimeout     = 10 * time.Second
)

// App is the terminal client shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	body     *tview.Flex
	pages    *ui.Pages
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.SessionInfo
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	registry *keys.Registry
	flash    *ui.FlashModel
	vm       *model.ViewModel

	chatList *views.ChatList
	thread   *views.MessageThread
	search   *views.SearchView
	auth     *views.AuthView
	hinters  map[string]ui.Hinter

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp builds the client for one session.
func NewApp(b model.Backend, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		crumbs:   ui.NewCrumbs(theme),
		menu:     ui.NewMenu(theme),
		info:     ui.NewSessionInfo(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		vm:       model.NewViewModel(b),
		chatList: views.NewChatList(theme),
		thread:   views.NewMessageThread(theme),
		search:   views.NewSearchView(theme),
		auth:     views.NewAuthView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.hinters = map[string]ui.Hinter{
		pageChats:  a.chatList,
		pageChat:   a.thread,
		pageSearch: a.search,
		pageAuth:   a.auth,
	}
	a.info.SetText(" session " + sessionName + ": loading...")

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Description: "Command",
		Handler: a.showPrompt,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit", Hidden: true,
		Handler: a.Stop,
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "Search", Hidden: true,
		Handler: func() {
			a.pages.Push(pageSearch)
			a.app.SetFocus(a.search.Input())
		},
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'f', Label: "f", Description: "Filter", Hidden: true,
		Handler: func() {
			a.showPrompt()
			a.prompt.SetText("filter ")
		},
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Compose", Hidden: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r", Description: "Reload", Hidden: true,
		Handler: func() { a.openChat(a.vm.ActiveChat()) },
	})
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(int, int) {
		if jid := a.chatList.SelectedChat(); jid != "" {
			a.openChat(jid)
		}
	})

	a.search.Results().SetSelectedFunc(func(int, int) {
		if jid := a.search.SelectedChat(); jid != "" {
			a.openChat(jid)
		}
	})

	a.search.SetOnQuery(func(query string) {
		a.background(func(ctx context.Context) error {
			msgs, err := a.vm.Search(ctx, query)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			a.app.QueueUpdateDraw(func() {
				a.search.Update(msgs)
				a.app.SetFocus(a.search.Results())
			})
			return nil
		})
	})

	a.thread.SetOnSend(func(text string) {
		a.background(func(ctx context.Context) error {
			if err := a.vm.SendText(ctx, text); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			if err := a.vm.LoadMessages(ctx, a.vm.ActiveChat()); err != nil {
				return err
			}
			a.app.QueueUpdateDraw(func() { a.thread.Update(a.vm.Messages()) })
			return nil
		})
	})

	a.prompt.SetOnSubmit(func(text string) {
		a.hidePrompt()
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateMenu()
	})
}

func (a *App) setupLayout() {
	a.pages.Register(pageChats, a.chatList)
	a.pages.Register(pageChat, a.thread)
	a.pages.Register(pageSearch, a.search)
	a.pages.Register(pageAuth, a.auth)

	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.pages.Reset(pageChats)
	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	focused := a.app.GetFocus()
	if focused == a.prompt.InputField {
		return ev
	}
	if focused == a.thread.Composer() {
		if ev.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		return ev
	}
	if _, ok := focused.(*tview.InputField); ok && ev.Key() != tcell.KeyEscape {
		return ev
	}

	if ev.Key() == tcell.KeyEscape {
		if a.pages.Pop() != "" {
			a.focusCurrent()
		}
		return nil
	}
	if a.registry.HandleEvent(a.pages.Current(), ev) {
		return nil
	}
	return ev
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "start", "connect":
		a.background(func(ctx context.Context) error {
			if err := a.vm.Start(ctx); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			a.flash.Info("connecting")
			return nil
		})
	case "logout":
		a.background(func(ctx context.Context) error {
			if err := a.vm.Logout(ctx); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			a.flash.Info("logged out")
			return nil
		})
	case "filter":
		a.chatList.SetFilter(cmd.Args)
		a.pages.Reset(pageChats)
		a.focusCurrent()
	case "search":
		a.pages.Push(pageSearch)
		a.search.Input().SetText(cmd.Args)
		a.app.SetFocus(a.search.Input())
	case "chat", "open":
		if cmd.Args == "" {
			a.flash.Err(errors.New("usage: chat <jid>"))
			break
		}
		a.openChat(cmd.Args)
	default:
		a.flash.Err(fmt.Errorf("unknown command %q", cmd.Name))
	}
	a.flashBar.Update(a.flash.Current())
}

func (a *App) openChat(jid string) {
	if jid == "" {
		return
	}
	a.background(func(ctx context.Context) error {
		if err := a.vm.LoadMessages(ctx, jid); err != nil {
			return fmt.Errorf("load messages: %w", err)
		}
		name := a.vm.ChatName(jid)
		a.app.QueueUpdateDraw(func() {
			a.thread.SetChatName(name)
			a.thread.Update(a.vm.Messages())
			if a.pages.Current() != pageChat {
				a.pages.Push(pageChat)
			}
			a.app.SetFocus(a.thread.Messages())
		})
		return nil
	})
}

// background runs fn off the UI goroutine and flashes its error.
func (a *App) background(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && a.ctx.Err() == nil {
			a.flash.Err(err)
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		}
	}()
}

func (a *App) showPrompt() {
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageChat:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.search.Input())
	case pageAuth:
		a.app.SetFocus(a.auth)
	default:
		a.app.SetFocus(a.chatList)
	}
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if h, ok := a.hinters[a.pages.Current()]; ok {
		hints = append(hints, h.Hints()...)
	}
	hints = append(hints, a.registry.Hints(a.pages.Current())...)
	a.menu.Update(hints)
}

// Run blocks until the user quits.
func (a *App) Run() error {
	go a.poll()
	return a.app.Run()
}

// Stop ends the client.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) poll() {
	a.refresh(true)
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refresh(false)
		case <-a.ctx.Done():
			return
		}
	}
}

// refresh reloads status and the data behind the visible page. On the first
// pass a disconnected session is asked to connect, which yields a pairing
// code when no device is linked yet.
func (a *App) refresh(first bool) {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()

	if err := a.vm.LoadStatus(ctx); err != nil {
		if a.ctx.Err() == nil {
			a.flash.Err(fmt.Errorf("daemon unreachable: %w", err))
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		}
		return
	}
	st := a.vm.Status()
	if first && st.Status == "disconnected" {
		if err := a.vm.Start(ctx); err != nil {
			a.flash.Err(fmt.Errorf("start: %w", err))
		}
		_ = a.vm.LoadStatus(ctx)
		st = a.vm.Status()
	}

	chatsErr := a.vm.LoadChats(ctx)
	if chatsErr != nil {
		a.flash.Err(fmt.Errorf("load chats: %w", chatsErr))
	}
	active := a.vm.ActiveChat()
	if active != "" {
		_ = a.vm.LoadMessages(ctx, active)
	}

	challenge := a.vm.PairingChallenge()
	connected := a.vm.Connected()
	a.app.QueueUpdateDraw(func() {
		a.info.Update(st)
		a.chatList.Update(a.vm.Chats())
		current := a.pages.Current()
		switch {
		case challenge != "":
			a.auth.ShowChallenge(challenge)
			if current != pageAuth {
				a.pages.Push(pageAuth)
				a.focusCurrent()
			}
		case current == pageAuth && connected:
			a.auth.ShowMessage("Device linked.")
			a.flash.Info("device linked")
			a.pages.Reset(pageChats)
			a.focusCurrent()
		case current == pageAuth && st.Error != "":
			a.auth.ShowMessage(st.Error + "\n\nRun :start to try again.")
		case current == pageChat && active != "":
			a.thread.Update(a.vm.Messages())
		}
		a.flashBar.Update(a.flash.Current())
	})
}
