package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

const (
	telegramOutbox      = 32
	telegramSendTimeout = 15 * time.Second
)

// Telegram delivers alerts through the Telegram Bot API. Notify only queues
// the message; a background sender posts it, so a slow API never holds up
// the caller. Close stops the sender after flushing the queue.
type Telegram struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	outbox chan string
	done   chan struct{}
}

// NewTelegram creates a Telegram notifier. An empty baseURL selects
// DefaultTelegramAPI.
func NewTelegram(baseURL, botToken, chatID string, logger *slog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Telegram{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: telegramSendTimeout},
		logger:   logger,
		outbox:   make(chan string, telegramOutbox),
		done:     make(chan struct{}),
	}
	go t.sender()
	return t
}

func (t *Telegram) sender() {
	defer close(t.done)
	for text := range t.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), telegramSendTimeout)
		if err := t.Send(ctx, text); err != nil {
			t.logger.Warn("notify: telegram delivery failed", slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Close flushes queued messages and stops the sender. It is idempotent.
func (t *Telegram) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.outbox)
	}
	t.mu.Unlock()
	<-t.done
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notify queues the alert without waiting for delivery. When the queue is
// full or the notifier is closed the alert is dropped and logged.
func (t *Telegram) Notify(_ context.Context, title, body, emoji string) {
	text := Headline(title, emoji)
	if body != "" && body != title {
		text += "\n" + body
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.logger.Warn("notify: telegram closed, alert dropped", slog.String("title", title))
		return
	}
	select {
	case t.outbox <- text:
	default:
		t.logger.Warn("notify: telegram outbox full, alert dropped", slog.String("title", title))
	}
}

// Send posts text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	body, err := json.Marshal(telegramSendRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("telegram: parse response (status %d): %w", resp.StatusCode, err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram: api error: %s", tgResp.Description)
	}
	return nil
}
