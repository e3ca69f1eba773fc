package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/desertthunder/tunebox/internal/shared"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramUser is the sender of a message or callback.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// TelegramChat is the chat a message belongs to.
type TelegramChat struct {
	ID int64 `json:"id"`
}

// TelegramAudio is an audio attachment.
type TelegramAudio struct {
	FileID    string `json:"file_id"`
	Title     string `json:"title,omitempty"`
	Performer string `json:"performer,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
}

// TelegramMessage is an incoming or sent message.
type TelegramMessage struct {
	MessageID int            `json:"message_id"`
	From      *TelegramUser  `json:"from,omitempty"`
	Chat      TelegramChat   `json:"chat"`
	Text      string         `json:"text,omitempty"`
	Audio     *TelegramAudio `json:"audio,omitempty"`
}

// TelegramCallbackQuery is an inline keyboard button press.
type TelegramCallbackQuery struct {
	ID      string           `json:"id"`
	From    TelegramUser     `json:"from"`
	Message *TelegramMessage `json:"message,omitempty"`
	Data    string           `json:"data,omitempty"`
}

// TelegramUpdate is one entry of a getUpdates response.
type TelegramUpdate struct {
	UpdateID      int                    `json:"update_id"`
	Message       *TelegramMessage       `json:"message,omitempty"`
	CallbackQuery *TelegramCallbackQuery `json:"callback_query,omitempty"`
}

// TelegramFile is the result of getFile.
type TelegramFile struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size,omitempty"`
}

// WebAppInfo points an inline button at a web app.
type WebAppInfo struct {
	URL string `json:"url"`
}

// InlineKeyboardButton is a single inline button. Exactly one of CallbackData and WebApp is set.
type InlineKeyboardButton struct {
	Text         string      `json:"text"`
	CallbackData string      `json:"callback_data,omitempty"`
	WebApp       *WebAppInfo `json:"web_app,omitempty"`
}

// InlineKeyboardMarkup is a grid of inline buttons attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type telegramEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// TelegramService is a client of the Telegram Bot API.
type TelegramService struct {
	token   string
	baseURL string
	client  *resty.Client
}

// NewTelegramService creates a Bot API client. An empty baseURL uses the public endpoint.
func NewTelegramService(baseURL, token string, timeout time.Duration) *TelegramService {
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &TelegramService{
		token:   token,
		baseURL: baseURL,
		client:  newClient(baseURL, timeout),
	}
}

// call POSTs a JSON payload to a Bot API method and decodes its result into out (when non-nil).
func (s *TelegramService) call(ctx context.Context, method string, payload, out any) error {
	if s.token == "" {
		return fmt.Errorf("%w: bot token", shared.ErrMissingCredentials)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/bot" + s.token + "/" + method)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", shared.ErrUpstream, method, s.redact(err))
	}

	var env telegramEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%w: %s returned %s", shared.ErrUpstream, method, resp.Status())
	}
	if !env.OK {
		return fmt.Errorf("%w: %s failed (%d): %s", shared.ErrUpstream, method, env.ErrorCode, env.Description)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s result: %v", shared.ErrUpstream, method, err)
	}
	return nil
}

// GetUpdates long-polls for updates after offset. timeout is the server-side poll duration.
func (s *TelegramService) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]TelegramUpdate, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}

	var updates []TelegramUpdate
	if err := s.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat with an optional inline keyboard.
func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*TelegramMessage, error) {
	payload := map[string]any{"chat_id": chatID, "text": text}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	var msg TelegramMessage
	if err := s.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text and keyboard of an existing message.
func (s *TelegramService) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{"chat_id": chatID, "message_id": messageID, "text": text}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return s.call(ctx, "editMessageText", payload, nil)
}

// DeleteMessage deletes a message from a chat.
func (s *TelegramService) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return s.call(ctx, "deleteMessage", map[string]any{"chat_id": chatID, "message_id": messageID}, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally showing text as a notice.
func (s *TelegramService) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return s.call(ctx, "answerCallbackQuery", payload, nil)
}

// GetFile resolves a file id into a downloadable file path.
func (s *TelegramService) GetFile(ctx context.Context, fileID string) (*TelegramFile, error) {
	var file TelegramFile
	if err := s.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("%w: getFile returned no path for %s", shared.ErrUpstream, fileID)
	}
	return &file, nil
}

// Fetch downloads the bytes of a file by id.
func (s *TelegramService) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		Get("/file/bot" + s.token + "/" + file.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %s", shared.ErrUpstream, file.FilePath, s.redact(err))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: download %s returned %s", shared.ErrUpstream, file.FilePath, resp.Status())
	}
	return resp.Body(), nil
}

// redact strips the bot token from transport errors, which embed the request URL.
func (s *TelegramService) redact(err error) string {
	return strings.ReplaceAll(err.Error(), s.token, "<token>")
}
