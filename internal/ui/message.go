package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunebox/internal/bot"
)

// MsgKind enumerates all message types in the console.
type MsgKind int

// Msg represents all possible messages in the console (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgReply MsgKind = iota
	MsgMenuRemembered
)

type replyData struct {
	event bot.Event
	reply bot.Reply
	err   error
}

// replyMsg is the constructor for [MsgReply]
func replyMsg(ev bot.Event, reply bot.Reply, err error) Msg {
	return Msg{kind: MsgReply, data: replyData{ev, reply, err}}
}

// menuRememberedMsg is the constructor for [MsgMenuRemembered]
func menuRememberedMsg(err error) Msg {
	return Msg{kind: MsgMenuRemembered, data: err}
}
