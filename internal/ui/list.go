package ui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tunebox/internal/bot"
)

var _ list.Item = buttonItem{}

// buttonItem wraps [bot.Button] to implement [list.Item].
type buttonItem struct {
	button bot.Button
}

func (i buttonItem) FilterValue() string { return i.button.Text }
func (i buttonItem) Title() string       { return i.button.Text }
func (i buttonItem) Description() string {
	if i.button.WebAppURL != "" {
		return i.button.WebAppURL
	}
	return i.button.Data
}

func buttonItems(kb bot.Keyboard) []list.Item {
	buttons := kb.Buttons()
	items := make([]list.Item, len(buttons))
	for i, b := range buttons {
		items[i] = buttonItem{button: b}
	}
	return items
}

func newMenu(kb bot.Keyboard, width int) list.Model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	d.SetSpacing(0)

	items := buttonItems(kb)
	menu := list.New(items, d, width, len(items)+4)
	menu.Title = "Menu"
	menu.SetShowStatusBar(false)
	menu.SetShowHelp(false)
	menu.SetFilteringEnabled(false)
	menu.KeyMap.Quit.SetEnabled(false)
	return menu
}
