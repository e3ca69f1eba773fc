package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/tunebox/internal/services"
)

// Callback data values.
const (
	CallbackSelectPrefix   = "select_"
	CallbackCreatePlaylist = "create_playlist"
	CallbackDeletePlaylist = "delete_playlist"
	CallbackConfirmDelete  = "confirm_delete"
	CallbackCancelDelete   = "cancel_delete"
	CallbackBackToSelect   = "back_to_select"
)

// Button is an inline button. A button with a WebAppURL opens the web app instead of sending Data.
type Button struct {
	Text      string
	Data      string
	WebAppURL string
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

// Buttons returns every button in row order.
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}

// Markup converts the keyboard into a Bot API reply markup. An empty keyboard yields nil.
func (k Keyboard) Markup() *services.InlineKeyboardMarkup {
	if len(k) == 0 {
		return nil
	}
	rows := make([][]services.InlineKeyboardButton, 0, len(k))
	for _, row := range k {
		buttons := make([]services.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := services.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data}
			if b.WebAppURL != "" {
				btn = services.InlineKeyboardButton{Text: b.Text, WebApp: &services.WebAppInfo{URL: b.WebAppURL}}
			}
			buttons = append(buttons, btn)
		}
		rows = append(rows, buttons)
	}
	return &services.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func selectData(i int) string { return CallbackSelectPrefix + strconv.Itoa(i) }

// parseSelect returns the playlist index of a select_<i> callback.
func parseSelect(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, CallbackSelectPrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func playlistKeyboard(names []string) Keyboard {
	kb := make(Keyboard, 0, len(names)+1)
	for i, name := range names {
		kb = append(kb, []Button{{Text: fmt.Sprintf("Select %q", name), Data: selectData(i)}})
	}
	return append(kb, []Button{{Text: "Create new playlist", Data: CallbackCreatePlaylist}})
}

func selectedKeyboard(webAppURL string) Keyboard {
	var kb Keyboard
	if webAppURL != "" {
		kb = append(kb, []Button{{Text: "Open playlist", WebAppURL: webAppURL}})
	}
	return append(kb,
		[]Button{{Text: "Choose another playlist", Data: CallbackBackToSelect}},
		[]Button{{Text: "Delete playlist", Data: CallbackDeletePlaylist}},
	)
}

func confirmKeyboard() Keyboard {
	return Keyboard{{
		{Text: "Yes, delete", Data: CallbackConfirmDelete},
		{Text: "No", Data: CallbackCancelDelete},
	}}
}
