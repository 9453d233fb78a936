// Package telegram is a minimal Bot API client covering what the printer
// bot needs: long polling, plain and keyboard messages, message edits and
// file downloads.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/common/logger"
)

const defaultBaseURL = "https://api.telegram.org"

type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	token          string
	baseURL        string
	pollTimeout    int
}

// User is the sender of a message or callback query.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Document  *Document   `json:"document"`
	Photo     []PhotoSize `json:"photo"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// File is the getFile result used to build a download URL.
type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func NewClient(token string, pollTimeout int) *Client {
	return &Client{
		httpClient: &http.Client{
			// Has to outlive the long-poll timeout.
			Timeout: time.Duration(pollTimeout+10) * time.Second,
		},
		downloadClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		token:       token,
		baseURL:     defaultBaseURL,
		pollTimeout: pollTimeout,
	}
}

// SetBaseURL points the client at a different API host. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// GetUpdates long-polls for the next batch of updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(c.pollTimeout)},
		"allowed_updates": {`["message","callback_query"]`},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, apperrors.NewTelegramAPIError("getUpdates", err)
	}
	return updates, nil
}

// SendMessage sends a plain text reply.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	return c.sendMessage(ctx, chatID, text, nil)
}

// SendMessageWithKeyboard sends a message carrying an inline keyboard.
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard [][]InlineKeyboardButton) (*Message, error) {
	return c.sendMessage(ctx, chatID, text, keyboard)
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string, keyboard [][]InlineKeyboardButton) (*Message, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}

	if keyboard != nil {
		markup, err := json.Marshal(inlineKeyboardMarkup{InlineKeyboard: keyboard})
		if err != nil {
			return nil, apperrors.NewTelegramAPIError("sendMessage", err)
		}
		params.Set("reply_markup", string(markup))
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, apperrors.NewTelegramAPIError("sendMessage", err)
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
		"text":       {text},
	}

	if err := c.call(ctx, "editMessageText", params, nil); err != nil {
		return apperrors.NewTelegramAPIError("editMessageText", err)
	}
	return nil
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
	}

	if err := c.call(ctx, "deleteMessage", params, nil); err != nil {
		return apperrors.NewTelegramAPIError("deleteMessage", err)
	}
	return nil
}

// AnswerCallbackQuery acknowledges a button press. Clients show a spinner
// until this is sent, even when there is nothing to say.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID string) error {
	params := url.Values{
		"callback_query_id": {queryID},
	}

	if err := c.call(ctx, "answerCallbackQuery", params, nil); err != nil {
		return apperrors.NewTelegramAPIError("answerCallbackQuery", err)
	}
	return nil
}

// GetFile resolves a file id into a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	params := url.Values{
		"file_id": {fileID},
	}

	var file File
	if err := c.call(ctx, "getFile", params, &file); err != nil {
		return nil, apperrors.NewTelegramAPIError("getFile", err)
	}
	return &file, nil
}

// DownloadFile streams the file behind a getFile result into dest.
func (c *Client) DownloadFile(ctx context.Context, filePath, dest string) error {
	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewTelegramAPIError("downloadFile", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return apperrors.NewTelegramAPIError("downloadFile", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewTelegramAPIError("downloadFile",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	out, err := os.Create(dest)
	if err != nil {
		return apperrors.NewTelegramAPIError("downloadFile", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return apperrors.NewTelegramAPIError("downloadFile", err)
	}

	logger.Info().Str("dest", dest).Msg("File downloaded")
	return nil
}

// call posts a Bot API method and decodes the result envelope into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Ok          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !envelope.Ok {
		return fmt.Errorf("telegram API error: %s", envelope.Description)
	}

	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}

	return nil
}
