// Package ui implements a terminal chat console using bubbletea's Elm architecture.
//
// The console stands in for the chat client: it feeds typed text, commands and local audio files
// through a [bot.Conversation] and renders the replies as a transcript.
//  1. Typed lines become text or command events (/start, /audio <path> [title] [artist])
//  2. Inline keyboards from the last menu message become a [list.Model] of buttons
//  3. Pressing a button sends a callback event for the message that carries it
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving conversation results via the Msg union type.
//
// Keyboard navigation: tab switches between the input and the menu, enter sends or presses, esc returns to
// the input, ctrl+c quits.
package ui
