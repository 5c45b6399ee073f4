package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/render"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxRetryAfter  = 30 * time.Second
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	wait     func(context.Context, time.Duration) error
}

var _ ports.DigestPublisher = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	return &Notifier{
		apiBase:  base,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		wait:     sleepContext,
	}
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string { return "telegram" }

// Publish renders the digest as Markdown and posts it to the chat.
func (n *Notifier) Publish(ctx context.Context, digest domain.Digest) error {
	return n.send(ctx, render.Text(digest))
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// send posts text once more after the flood-control delay Telegram asks for.
func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	retryAfter, err := n.post(ctx, text)
	if err == nil || retryAfter <= 0 {
		return err
	}
	if werr := n.wait(ctx, min(retryAfter, maxRetryAfter)); werr != nil {
		return fmt.Errorf("%w (wait: %v)", err, werr)
	}
	_, err = n.post(ctx, text)
	return err
}

func (n *Notifier) post(ctx context.Context, text string) (time.Duration, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed apiResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusOK && (decodeErr != nil || parsed.OK) {
		return 0, nil
	}

	detail := parsed.Description
	if decodeErr != nil || detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	err = fmt.Errorf("telegram error: %s: %s", resp.Status, detail)
	if resp.StatusCode == http.StatusTooManyRequests {
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second, err
	}
	return 0, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
