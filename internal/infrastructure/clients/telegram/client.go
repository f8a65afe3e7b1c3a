// Package telegram implements the Bot API notification channel.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
)

const defaultAPIBase = "https://api.telegram.org"

// Client sends messages through the Telegram Bot API.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIBase overrides the Bot API host, used by tests.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = base }
}

// NewClient creates a Telegram notifier for the given bot token.
func NewClient(token string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiBase:    defaultAPIBase,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts an HTML-formatted message to chatID and returns the message id
// assigned by Telegram.
func (c *Client) Send(ctx context.Context, chatID int64, text string) (string, error) {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return "", apperrors.NewInternalError("encoding telegram message").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewInternalError("building telegram request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewExternalError("TELEGRAM_UNREACHABLE", "telegram request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewExternalError("TELEGRAM_READ", "reading telegram response").WithCause(err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperrors.NewDataError("TELEGRAM_DECODE", "decoding telegram response").WithCause(err)
	}
	if !result.OK {
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", apperrors.NewRateLimitError("telegram rate limit exceeded")
		}
		return "", apperrors.NewExternalError("TELEGRAM_REJECTED",
			fmt.Sprintf("telegram rejected message for chat %d: %s", chatID, result.Description))
	}

	c.logger.Debug("sent telegram message",
		zap.Int64("chat_id", chatID),
		zap.Int64("message_id", result.Result.MessageID))
	return strconv.FormatInt(result.Result.MessageID, 10), nil
}
