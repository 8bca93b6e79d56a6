package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Single-letter bindings apply while no text input is focused.
type keyMap struct {
	home          key.Binding
	about         key.Binding
	terms         key.Binding
	subscriptions key.Binding
	history       key.Binding
	file          key.Binding
	youtube       key.Binding
	accept        key.Binding
	enter         key.Binding
	back          key.Binding
	play          key.Binding
	export        key.Binding
	account       key.Binding
	login         key.Binding
	manage        key.Binding
	refresh       key.Binding
	quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		home:          key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "home")),
		about:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "about")),
		terms:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "terms")),
		subscriptions: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "plans")),
		history:       key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "history")),
		file:          key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "audio file")),
		youtube:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "youtube")),
		accept:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "accept terms")),
		enter:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		play:          key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "play/stop")),
		export:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		account:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "account")),
		login:         key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in/out")),
		manage:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manage subscription")),
		refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.file, k.youtube, k.play, k.export, k.account, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.home, k.about, k.terms, k.subscriptions, k.history},
		{k.file, k.youtube, k.accept, k.enter, k.back},
		{k.play, k.export},
		{k.account, k.login, k.manage, k.refresh, k.quit},
	}
}
