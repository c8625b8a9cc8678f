// Package telegram sends operator alerts through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/summary-publish/pkg/publish"
)

// MaxMessageLength is the Bot API limit for sendMessage text, in characters.
const MaxMessageLength = 4096

const (
	defaultAPIURL  = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
	messageHeader  = "🚨 Reader Publish Error:\n\n"
)

// Config options for the Telegram notifier
type Config struct {
	BotToken string
	ChatID   string
	APIURL   string        // Bot API base URL (default: https://api.telegram.org)
	Timeout  time.Duration // HTTP client timeout (default: 10s)
}

// Notifier posts alerts to a single chat
type Notifier struct {
	endpoint string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a Telegram notifier. A bot token and chat ID are required;
// callers that have no token should use publish.NewNoopNotifier instead.
func New(config Config, logger *slog.Logger) (*Notifier, error) {
	if config.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if config.ChatID == "" {
		return nil, errors.New("chat ID is required")
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(config.APIURL, "/"), config.BotToken),
		chatID:   config.ChatID,
		client:   &http.Client{Timeout: config.Timeout},
		logger:   logger.With("component", "telegram-notifier"),
	}, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Notify sends the alert. Failures are logged and otherwise ignored.
func (n *Notifier) Notify(ctx context.Context, message string, fields map[string]string) {
	if err := n.send(ctx, FormatMessage(message, fields)); err != nil {
		n.logger.ErrorContext(ctx, "Failed to send error notification", "error", err)
	}
}

func (n *Notifier) send(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending notification: %v", r)
		}
	}()

	body, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("sendMessage request failed: %w", urlErr.Err)
		}
		return errors.New("sendMessage request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendMessage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FormatMessage renders the alert text and truncates it to MaxMessageLength
// characters.
func FormatMessage(message string, fields map[string]string) string {
	text := messageHeader + message
	if len(fields) > 0 {
		// map keys are marshalled in sorted order
		ctxJSON, err := json.MarshalIndent(fields, "", "  ")
		if err == nil {
			text += "\n\nContext: " + string(ctxJSON)
		}
	}
	return truncate(text, MaxMessageLength)
}

func truncate(s string, max int) string {
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

var _ publish.Notifier = (*Notifier)(nil)
