package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/services"
	"github.com/desertthunder/tunebox/internal/shared"
)

// pollBackoff is the pause after a failed getUpdates call before polling again.
const pollBackoff = 2 * time.Second

// Messenger is the chat API surface the dispatcher uses. Implemented by [services.TelegramService].
type Messenger interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]services.TelegramUpdate, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *services.InlineKeyboardMarkup) (*services.TelegramMessage, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *services.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Dispatcher long-polls the chat API and runs every update through the [Conversation] on its own goroutine.
type Dispatcher struct {
	api         Messenger
	conv        *Conversation
	pollTimeout time.Duration
	logger      *log.Logger
	wg          sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(api Messenger, conv *Conversation, pollTimeout time.Duration, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Dispatcher{
		api:         api,
		conv:        conv,
		pollTimeout: pollTimeout,
		logger:      shared.WithLogger(logger, "component", "dispatcher"),
	}
}

// Run polls until ctx is canceled, then waits for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.wg.Wait()
	d.logger.Info("polling for updates", "timeout", d.pollTimeout)

	offset := 0
	for {
		updates, err := d.api.GetUpdates(ctx, offset, d.pollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			d.logger.Error("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			d.wg.Add(1)
			go func(u services.TelegramUpdate) {
				defer d.wg.Done()
				d.Dispatch(ctx, u)
			}(update)
		}
	}
}

// Dispatch handles one update synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, update services.TelegramUpdate) {
	ev, callbackID, ok := ToEvent(update)
	if !ok {
		d.logger.Debug("ignoring update", "update", update.UpdateID)
		return
	}

	reply, err := d.conv.Handle(ctx, ev)
	if err != nil {
		d.logger.Error("failed to handle event", "user", ev.UserID, "kind", ev.Kind, "error", err)
		reply = Reply{Mode: ReplySend, Text: "❌ Something went wrong, try /start again."}
	}
	d.render(ctx, ev, callbackID, reply)
}

func (d *Dispatcher) render(ctx context.Context, ev Event, callbackID string, reply Reply) {
	// Callbacks from inline-mode or expired messages carry no message to edit.
	if reply.Mode == ReplyEdit && ev.MessageID == 0 {
		if reply.Notice == "" {
			reply.Notice = reply.Text
		}
		reply.Mode = ReplyNone
	}

	if callbackID != "" {
		if err := d.api.AnswerCallbackQuery(ctx, callbackID, reply.Notice); err != nil {
			d.logger.Warn("failed to answer callback", "user", ev.UserID, "error", err)
		}
	}

	if reply.DeleteMessageID > 0 {
		if err := d.api.DeleteMessage(ctx, ev.ChatID, reply.DeleteMessageID); err != nil {
			d.logger.Warn("failed to delete stale menu", "user", ev.UserID, "message", reply.DeleteMessageID, "error", err)
		}
	}

	switch reply.Mode {
	case ReplySend:
		msg, err := d.api.SendMessage(ctx, ev.ChatID, reply.Text, reply.Keyboard.Markup())
		if err != nil {
			d.logger.Error("failed to send reply", "user", ev.UserID, "error", err)
			return
		}
		if reply.Menu {
			if err := d.conv.RememberMenu(ctx, ev.UserID, ev.ChatID, msg.MessageID); err != nil {
				d.logger.Warn("failed to remember menu message", "user", ev.UserID, "error", err)
			}
		}
	case ReplyEdit:
		err := d.api.EditMessageText(ctx, ev.ChatID, ev.MessageID, reply.Text, reply.Keyboard.Markup())
		if err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("failed to edit message", "user", ev.UserID, "message", ev.MessageID, "error", err)
		}
	}
}

// ToEvent converts a chat update into an [Event]. The second value is the callback query id, if any.
func ToEvent(update services.TelegramUpdate) (Event, string, bool) {
	if cq := update.CallbackQuery; cq != nil {
		ev := Event{Kind: EventCallback, UserID: userID(cq.From.ID), Data: cq.Data}
		if cq.Message != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, cq.ID, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return Event{}, "", false
	}
	ev := Event{UserID: userID(msg.From.ID), ChatID: msg.Chat.ID, MessageID: msg.MessageID, Text: msg.Text}
	switch {
	case msg.Audio != nil:
		ev.Kind = EventAudio
		ev.Audio = &Audio{
			FileID:    msg.Audio.FileID,
			Title:     msg.Audio.Title,
			Performer: msg.Audio.Performer,
			FileName:  msg.Audio.FileName,
		}
	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = EventCommand
	case msg.Text != "":
		ev.Kind = EventText
	default:
		return Event{}, "", false
	}
	return ev, "", true
}

func userID(id int64) models.UserID {
	return models.UserID(strconv.FormatInt(id, 10))
}
